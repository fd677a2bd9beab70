package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Pchelolo/restbase/internal/app"
	"github.com/Pchelolo/restbase/internal/cli"
)

// main is the entrypoint for the reqtpl tool.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW, errW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, errW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	reqtplApp := app.NewApp(outW, errW, appConfig)
	return reqtplApp.Run(context.Background(), appConfig)
}
