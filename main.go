/*
Command framegraph records the testbed frame (or a frame description),
builds and schedules it, and replays the barriers on a dry-run backend.
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/framegraph/engine"
	"github.com/spaghettifunk/framegraph/engine/cli"
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/testbed"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		core.LogError("%v", err)
		os.Exit(1)
	}
}

func run(out io.Writer, args []string) error {
	config, exit, err := cli.Parse(args, out)
	if err != nil || exit {
		return err
	}
	core.InitLogger(core.ParseLogLevel(config.LogLevel), os.Stderr)

	tb := testbed.NewTestGame()
	if config.Name == engine.DefaultApplicationConfig().Name {
		config.Name = tb.ApplicationConfig.Name
	}
	tb.ApplicationConfig = config

	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}
	if err := e.Initialize(); err != nil {
		return err
	}
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError("shutdown: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := e.Run(ctx); err != nil {
		return err
	}
	m := e.Metrics()
	core.LogInfo("rendered %d frames, average %s", m.Frames(), m.Average())
	return nil
}
