// Package logger sets up the engine's log15-based structured logging, so
// every resource record gets a child logger carrying its kind and
// identity, with failures rendered in red on stderr.
package logger

import (
	"os"

	"github.com/fatih/color"
	"github.com/inconshreveable/log15"
	"github.com/sb10/l15h"
)

// New returns the root logger for a recipe run, writing level-appropriate
// colourised lines to stderr.
func New(name string) log15.Logger {
	l := log15.New("app", name)
	l.SetHandler(l15h.CallerFileHandler(colourHandler(log15.StderrHandler)))
	return l
}

// ForRecord returns a child logger scoped to one resource record, carrying
// its kind and identity so every apply/skip/failure line is attributable.
func ForRecord(parent log15.Logger, kind, name string) log15.Logger {
	return parent.New("kind", kind, "resource", name)
}

// colourHandler wraps h so that error-level records print in red and
// warn-level records (including guard-skip notices) print in yellow.
func colourHandler(h log15.Handler) log15.Handler {
	return log15.FuncHandler(func(r *log15.Record) error {
		switch r.Lvl {
		case log15.LvlError, log15.LvlCrit:
			r.Msg = color.New(color.FgRed).Sprint(r.Msg)
		case log15.LvlWarn:
			r.Msg = color.New(color.FgYellow).Sprint(r.Msg)
		}
		return h.Log(r)
	})
}

// init disables colour when stderr isn't a terminal, so a log redirected
// to a file or pipe doesn't carry stray ANSI escapes.
func init() {
	if !isTerminal(os.Stderr) {
		color.NoColor = true
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
