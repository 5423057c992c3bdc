// Package config loads the engine's own ambient settings (as opposed to a
// recipe's resource declarations): a YAML file merged over built-in
// defaults via configor.
package config

import (
	"github.com/jinzhu/configor"
)

// Config holds settings that apply to every recipe run on this host.
type Config struct {
	// StateDir is a directory for cross-run convergence state. Defaults to
	// ~/.hola. remote_file's ETag/Last-Modified sidecars are kept next to
	// each managed file, not here.
	StateDir string `default:"~/.hola"`

	// Shell is the interpreter used to run only_if/not_if string guards and
	// execute resources' command strings.
	Shell string `default:"/bin/sh"`

	// DefaultBackupCount is used by file resources whose `backup` field is
	// left unset, and by every template resource.
	DefaultBackupCount int `default:"5"`

	// AptEnv are the environment variables forced onto every apt-get
	// invocation.
	AptEnv map[string]string `default:"{\"DEBIAN_FRONTEND\":\"noninteractive\",\"APT_LISTCHANGES_FRONTEND\":\"none\",\"NEEDRESTART_MODE\":\"l\"}"`

	// AWS.Region is the region the aws_kms driver falls back to when a
	// recipe leaves region empty.
	AWS struct {
		Region string `default:""`
	}

	// ConnectTimeoutSeconds and TotalTimeoutSeconds bound remote_file
	// connect+fetch time, defaulting to a 30s connect / 120s total budget.
	ConnectTimeoutSeconds int `default:"30"`
	TotalTimeoutSeconds   int `default:"120"`
}

// Load reads path (if it exists) over the defaults above. An empty path
// loads defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	loader := configor.New(&configor.Config{Silent: true})
	var err error
	if path == "" {
		err = loader.Load(cfg)
	} else {
		err = loader.Load(cfg, path)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
