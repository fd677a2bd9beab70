// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/Pchelolo/restbase/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated
// app.Config, a boolean indicating if the program should exit cleanly, or
// an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("reqtpl", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
reqtpl - compile a declarative request template and evaluate it against a
request context.

Usage:
  reqtpl [options] [SPEC_PATH]

Arguments:
  SPEC_PATH
    Path to a YAML template spec document (alternative to -spec).

Options:
`)
		flagSet.PrintDefaults()
	}

	specFlag := flagSet.String("spec", "", "Path to the YAML template spec document.")
	sFlag := flagSet.String("s", "", "Path to the YAML template spec document (shorthand).")
	contextFlag := flagSet.String("context", "", "Path to the JSON evaluation context.")
	globalsFlag := flagSet.String("globals", "", "Path to an optional YAML globals document bound under $$.")
	templateFlag := flagSet.String("template", "default", "Spec name to use from a catalog document.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	specPath := ""
	if *specFlag != "" {
		specPath = *specFlag
	} else if *sFlag != "" {
		specPath = *sFlag
	} else if flagSet.NArg() > 0 {
		specPath = flagSet.Arg(0)
	}

	if specPath == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		SpecPath:    specPath,
		ContextPath: *contextFlag,
		GlobalsPath: *globalsFlag,
		Template:    *templateFlag,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	return config, false, nil
}
