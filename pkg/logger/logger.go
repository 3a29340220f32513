package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Log struct {
	LogLevel zapcore.Level `yaml:"level" envconfig:"LOG_LEVEL"`
	Sink     string        `yaml:"sink" envconfig:"LOG_SINK"`
}

// NewLogger builds a zap logger named after the service.
// An empty sink writes human-readable output to stdout, otherwise JSON is appended to the file.
func NewLogger(cfg Log, name string) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var (
		enc  zapcore.Encoder
		sink zapcore.WriteSyncer
	)
	if cfg.Sink == "" || cfg.Sink == "stdout" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
		sink = zapcore.Lock(os.Stdout)
	} else {
		f, err := os.OpenFile(cfg.Sink, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			enc = zapcore.NewConsoleEncoder(encCfg)
			sink = zapcore.Lock(os.Stderr)
		} else {
			enc = zapcore.NewJSONEncoder(encCfg)
			sink = zapcore.AddSync(f)
		}
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(cfg.LogLevel))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.DPanicLevel)).Named(name)
}
