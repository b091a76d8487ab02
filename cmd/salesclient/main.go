// cmd/salesclient/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"absensi/internal/platform/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("[boot] salesclient starting")

	cont, err := di.NewContainer(ctx, func() {
		log.Printf("[boot] session expired; returning to login")
	})
	if err != nil {
		log.Printf("[boot] FATAL: di init failed: %v", err)
		os.Exit(1)
	}
	defer cont.Close()

	log.Printf("[boot] online=%v cart items=%d pending sync=%d",
		cont.Probe.Online(), cont.Cart.Summary().ItemCount, len(cont.Queue.Pending()))

	// Session monitor + offline queue run until SIGINT/SIGTERM.
	if err := cont.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[boot] run: %v", err)
		os.Exit(1)
	}
	log.Printf("[boot] salesclient stopped")
}
