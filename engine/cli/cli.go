// Package cli turns command line flags into an engine.ApplicationConfig.
package cli

import (
	"flag"
	"fmt"
	"io"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/core"
)

// ExitError carries the process exit code for a failed parse.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse reads args on top of an optional -config file. It returns the config,
// whether the program should exit cleanly (help was printed) or an ExitError.
func Parse(args []string, output io.Writer) (*engine.ApplicationConfig, bool, error) {
	flagSet := flag.NewFlagSet("framegraph", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
framegraph - records, prunes and schedules render frame graphs.

Usage:
  framegraph [options] [DESCRIPTION]

Arguments:
  DESCRIPTION
    A .toml or .hcl frame description. The built-in deferred frame is used
    when none is given.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to a TOML application config.")
	descriptionFlag := flagSet.String("description", "", "Path to a frame description.")
	dumpFlag := flagSet.String("dump", "", "Directory receiving a DOT dump of every frame.")
	watchFlag := flagSet.Bool("watch", false, "Re-render when the description changes.")
	framesFlag := flagSet.Int("frames", -1, "Number of frames to render, 0 renders until interrupted.")
	workersFlag := flagSet.Int("workers", -1, "Workers planning barriers, 0 uses one per CPU.")
	backendFlag := flagSet.String("backend", "", "Frame backend: dry_run or vulkan.")
	logLevelFlag := flagSet.String("log-level", "", "Logging level: debug, info, warn or error.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	config := engine.DefaultApplicationConfig()
	if *configFlag != "" {
		loaded, err := engine.LoadApplicationConfig(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		config = loaded
	}

	switch {
	case *descriptionFlag != "":
		config.Description = *descriptionFlag
	case flagSet.NArg() > 0:
		config.Description = flagSet.Arg(0)
	}
	if *dumpFlag != "" {
		config.DumpDir = *dumpFlag
	}
	if *watchFlag {
		config.Watch = true
	}
	if *framesFlag >= 0 {
		config.Frames = *framesFlag
	}
	if *workersFlag >= 0 {
		config.Workers = *workersFlag
	}
	if *backendFlag != "" {
		config.Backend = *backendFlag
	}
	if *logLevelFlag != "" {
		switch *logLevelFlag {
		case "debug", "info", "warn", "error":
			config.LogLevel = *logLevelFlag
		default:
			return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
		}
	}

	if err := config.Validate(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	core.LogDebug("parsed command line: %+v", *config)
	return config, false, nil
}
