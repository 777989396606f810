// Package logging builds the zap loggers used by the fanout tool.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config describes where and how much to log.
type Config struct {
	// File is the rotated log file. Empty logs to stderr only.
	File       string `yaml:"app-file,omitempty"`
	MaxSize    int    `yaml:"max-size,omitempty"` // MB
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAge     int    `yaml:"max-age,omitempty"` // days
	Compress   bool   `yaml:"compress,omitempty"`
	Level      string `yaml:"level,omitempty"`
}

// New returns a JSON logger writing to the rotated file (when configured) and to stderr.
// Errors and above carry a stack trace.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}
	if cfg.File != "" {
		cores = append(cores, zapcore.NewCore(
			encoder,
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
