package cli

import (
	"encoding/json"
	"errors"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danieljhkim/usercode/internal/clock"
	"github.com/danieljhkim/usercode/internal/config"
	"github.com/danieljhkim/usercode/internal/engine"
	"github.com/danieljhkim/usercode/internal/fsops"
	"github.com/danieljhkim/usercode/internal/hash"
	"github.com/danieljhkim/usercode/internal/section"
	"github.com/danieljhkim/usercode/internal/snapshot"
)

// newEngine creates a new engine with real implementations of all dependencies.
func newEngine() *engine.Engine {
	fs := fsops.NewRealFS()
	hasher := hash.NewSHA256Hasher()
	clk := &clock.RealClock{}
	snapshots := snapshot.NewManager(fs, clk)

	return engine.New(fs, hasher, snapshots, logger)
}

// newLogger builds the diagnostics logger. Entries go to stderr so that
// stdout stays clean for reports and --json output.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Sampling = nil
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if !color.NoColor {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// loadConfig loads the config for a tree, honoring --config.
func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(root, configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		logger.Debug("Loaded config", zap.String("path", cfg.Source))
	}
	return cfg, nil
}

// rootArg returns the first positional argument, or "." when there is none.
func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	initColors()
	var se *section.StructuralError
	if errors.As(err, &se) {
		return errorColor.Sprintf("Error in %v", se)
	}
	return errorColor.Sprintf("Error: %v", err)
}

// FormatError is formatError for the main package.
func FormatError(err error) string {
	return formatError(err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

