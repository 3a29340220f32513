// Command library serves the library loan HTTP API.
package main

import (
	"flag"
	stdLog "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/library-loan-service/library/app"
	"github.com/Astemirdum/library-loan-service/library/config"
)

func main() {
	debug := flag.Bool("debug", false, "log at debug level unless LOG_LEVEL is set")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env: ", err)
	}

	level := zapcore.InfoLevel
	if *debug {
		level = zapcore.DebugLevel
	}
	cfg := config.NewConfig(
		config.WithLogLevel(level),
		config.WithWriteTimeout(time.Minute),
	)

	app.Run(cfg)
}
