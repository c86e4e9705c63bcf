package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}

// New builds a JSON logger on stderr at the given level ("debug", "info", ...).
// When filePath is set, records are also appended to that file.
func New(level, filePath string) (*zap.Logger, error) {
	lvl := zap.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		parsed, err := zapcore.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
		lvl = parsed
	}

	enc := zapcore.NewJSONEncoder(encoderConfig())
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)}

	if filePath = strings.TrimSpace(filePath); filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(enc.Clone(), zapcore.AddSync(f), lvl))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
