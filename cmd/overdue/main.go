// Command overdue sends overdue and due soon reminders once and exits.
// Exit status is 0 when every reminder went out, 2 when some failed
// and 1 when the run could not start.
package main

import (
	"context"
	stdLog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Astemirdum/library-loan-service/library/app"
	"github.com/Astemirdum/library-loan-service/library/config"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitPartial = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Print("load envs from .env: ", err)
		return exitFailed
	}
	cfg := config.NewConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	overdue, dueSoon, err := app.Reminders(ctx, cfg)
	if err != nil {
		stdLog.Print("reminders: ", err)
		return exitFailed
	}
	stdLog.Printf("overdue: %d sent, %d failed; due soon: %d sent, %d failed",
		overdue.Delivered, overdue.Failed, dueSoon.Delivered, dueSoon.Failed)
	if overdue.Failed > 0 || dueSoon.Failed > 0 {
		return exitPartial
	}
	return exitOK
}
