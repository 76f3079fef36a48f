// Package logging builds the zap logger shared by all mdmend commands.
package logging

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrInvalidFormat = errors.New("log format must be one of: console, json")

// New returns a logger writing to w at the given level. format is "console"
// or "json". A nil w means stderr, keeping stdout free for documents.
func New(level, format string, w zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	var enc zapcore.Encoder
	switch strings.ToLower(format) {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("%w (got %q)", ErrInvalidFormat, format)
	}

	if w == nil {
		w = zapcore.Lock(os.Stderr)
	}

	return zap.New(zapcore.NewCore(enc, w, lvl)), nil
}
