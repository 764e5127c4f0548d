package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FieldApp names the application on every record.
const FieldApp = "app"

// New builds the process logger. Logs go to stderr so that command output on
// stdout stays machine readable. Extra fields are attached to every record.
func New(json bool, debug bool, fields ...zap.Field) (*zap.Logger, error) {
	cfg := config(json, debug)

	logger, err := cfg.Build(zap.Fields(fields...))
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	return logger, nil
}

func config(json, debug bool) zap.Config {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if json {
		encoding = "json"
	}

	return zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		// Stack traces only for errors raised in debug runs.
		DisableStacktrace: !debug,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			StacktraceKey:  "stacktrace",
			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}
}
