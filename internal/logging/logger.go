// Package logging provides zap logger helpers.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls the logger.
type Options struct {
	Development bool
	// File, when set, receives a copy of every entry. The file is opened in append mode.
	File  string
	Level string
}

// New builds a zap.Logger that writes to stderr and optionally to a file.
// The returned close func flushes and releases the file.
func New(opts Options) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse level: %w", err)
	}
	if opts.Development && opts.Level == "" {
		level = zapcore.DebugLevel
	}
	atom := zap.NewAtomicLevelAt(level)

	consoleEnc := encoderConfig(opts.Development)
	var console zapcore.Encoder
	if opts.Development {
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		console = zapcore.NewConsoleEncoder(consoleEnc)
	} else {
		console = zapcore.NewJSONEncoder(consoleEnc)
	}
	cores := []zapcore.Core{zapcore.NewCore(console, zapcore.Lock(os.Stderr), atom)}

	closeFile := func() {}
	if opts.File != "" {
		sink, closeSink, err := zap.Open(opts.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closeFile = closeSink
		fileEnc := encoderConfig(opts.Development)
		var enc zapcore.Encoder
		if opts.Development {
			fileEnc.EncodeLevel = zapcore.CapitalLevelEncoder
			enc = zapcore.NewConsoleEncoder(fileEnc)
		} else {
			enc = zapcore.NewJSONEncoder(fileEnc)
		}
		cores = append(cores, zapcore.NewCore(enc, sink, atom))
	}

	zopts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if opts.Development {
		zopts = append(zopts, zap.Development())
	}
	logger := zap.New(zapcore.NewTee(cores...), zopts...)
	return logger, func() {
		_ = logger.Sync()
		closeFile()
	}, nil
}

func encoderConfig(development bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	if development {
		cfg = zap.NewDevelopmentEncoderConfig()
	}
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
