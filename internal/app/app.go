// Package app wires the template loader, the compiler and the evaluation
// context plumbing into one runnable unit behind the CLI.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"gopkg.in/yaml.v3"

	"github.com/Pchelolo/restbase/internal/config"
	"github.com/Pchelolo/restbase/internal/ctxlog"
	"github.com/Pchelolo/restbase/internal/ctyconv"
	"github.com/Pchelolo/restbase/internal/reqtemplate"
)

// App compiles one template spec and evaluates it against one context,
// printing the resolved request as JSON.
type App struct {
	out    io.Writer
	errW   io.Writer
	logger *slog.Logger
}

// NewApp builds an App with its logger configured from the Config. Logs
// go to errW so stdout stays clean JSON.
func NewApp(outW, errW io.Writer, cfg *Config) *App {
	return &App{
		out:    outW,
		errW:   errW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, errW),
	}
}

// Run executes the load-compile-evaluate-print pipeline.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	specs, err := config.Load(cfg.SpecPath)
	if err != nil {
		return err
	}
	spec, ok := specs[cfg.Template]
	if !ok {
		return fmt.Errorf("template %q not found in %s", cfg.Template, cfg.SpecPath)
	}
	a.logger.Debug("Loaded template spec.", "path", cfg.SpecPath, "template", cfg.Template)

	opts, err := loadGlobals(cfg.GlobalsPath)
	if err != nil {
		return err
	}

	tpl, err := reqtemplate.Compile(ctx, spec, opts)
	if err != nil {
		return fmt.Errorf("compiling template: %w", err)
	}

	evalCtx, err := loadContext(cfg.ContextPath)
	if err != nil {
		return err
	}

	resolved, err := tpl.Eval(ctx, evalCtx)
	if err != nil {
		return fmt.Errorf("evaluating template: %w", err)
	}

	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resolved); err != nil {
		return fmt.Errorf("writing resolved request: %w", err)
	}
	return nil
}

// loadContext reads a JSON evaluation context straight into a cty value,
// with types implied from the document itself.
func loadContext(path string) (cty.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cty.NilVal, fmt.Errorf("reading evaluation context: %w", err)
	}
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("in evaluation context %s: %w", path, err)
	}
	v, err := ctyjson.Unmarshal(data, ty)
	if err != nil {
		return cty.NilVal, fmt.Errorf("in evaluation context %s: %w", path, err)
	}
	return v, nil
}

// loadGlobals reads the optional YAML globals document bound under $$.
func loadGlobals(path string) (*reqtemplate.Options, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading globals: %w", err)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing globals %s: %w", path, err)
	}
	v, err := ctyconv.ObjectFromNative(raw)
	if err != nil {
		return nil, fmt.Errorf("in globals %s: %w", path, err)
	}
	return &reqtemplate.Options{Globals: v.AsValueMap()}, nil
}
