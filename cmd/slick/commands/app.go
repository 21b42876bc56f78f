// Package commands implements the slick command line subcommands.
package commands

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"

	"github.com/hupe1980/slick"
	"github.com/hupe1980/slick/logging"
)

var (
	app    *slick.Slick
	logger logging.Logger = logging.NoOpLogger{}
)

// Setup builds the shared Slick instance. Verbosity 1 logs at info level,
// 2 and above at debug level.
func Setup(verbosity int) error {
	if verbosity > 0 {
		level := logging.LogLevelInfo
		if verbosity > 1 {
			level = logging.LogLevelDebug
		}
		z, err := logging.NewZapLogger(level)
		if err != nil {
			return errors.Wrap(err, "failed to create logger")
		}
		logger = z
	}

	app = slick.New(func(o *slick.Options) {
		o.Logger = logger
	})
	return nil
}

func instance() *slick.Slick {
	if app == nil {
		app = slick.New(func(o *slick.Options) { o.Logger = logger })
	}
	return app
}

// PrintError renders err and any attached hints.
func PrintError(err error) {
	pterm.Error.Println(err.Error())
	if hints := errors.FlattenHints(err); hints != "" {
		pterm.Info.Println(hints)
	}
}
