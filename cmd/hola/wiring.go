package main

import (
	"time"

	"github.com/ratazzi/hola/async"
	"github.com/ratazzi/hola/drivers"
	"github.com/ratazzi/hola/drivers/awskms"
	"github.com/ratazzi/hola/drivers/directory"
	"github.com/ratazzi/hola/drivers/execute"
	"github.com/ratazzi/hola/drivers/file"
	"github.com/ratazzi/hola/drivers/git"
	"github.com/ratazzi/hola/drivers/link"
	"github.com/ratazzi/hola/drivers/pkgmanager"
	"github.com/ratazzi/hola/drivers/remotefile"
	"github.com/ratazzi/hola/drivers/rubyblock"
	"github.com/ratazzi/hola/drivers/systemdunit"
	"github.com/ratazzi/hola/drivers/template"
	"github.com/ratazzi/hola/internal/config"
	"github.com/ratazzi/hola/internal/logger"
	"github.com/ratazzi/hola/resource"
	"github.com/ratazzi/hola/rp"
	"github.com/ratazzi/hola/script"
)

// engine bundles everything one recipe run needs: built from config, it is
// handed to convergence.New as the run's Dispatcher+Env source.
type engine struct {
	cfg *config.Config
	env *drivers.Env
	set *drivers.Set
}

func newEngine(cfg *config.Config) *engine {
	connectTimeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	totalTimeout := time.Duration(cfg.TotalTimeoutSeconds) * time.Second

	set := drivers.NewSet(map[resource.Kind]drivers.Driver{
		resource.KindFile:        file.New(cfg.DefaultBackupCount),
		resource.KindDirectory:   directory.New(),
		resource.KindLink:        link.New(),
		resource.KindRemoteFile:  remotefile.New(connectTimeout, totalTimeout),
		resource.KindExecute:     execute.New(cfg.Shell),
		resource.KindTemplate:    template.New(cfg.DefaultBackupCount),
		resource.KindGit:         git.New(),
		resource.KindPackage:     pkgmanager.New(cfg.AptEnv),
		resource.KindSystemdUnit: systemdunit.New(),
		resource.KindRubyBlock:   rubyblock.New(),
		resource.KindAWSKMS:      awskms.New(cfg.AWS.Region),
	})

	env := &drivers.Env{
		Logger:      logger.New("hola"),
		Executor:    async.NewExecutor(0),
		Interpreter: script.NewNativeInterpreter(),
		Config:      cfg,
		Limiters:    rp.NewTransportLimiters(4, 2*time.Minute),
	}

	return &engine{cfg: cfg, env: env, set: set}
}
