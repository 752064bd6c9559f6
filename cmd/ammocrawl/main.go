// cmd/ammocrawl/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/law-makers/ammocrawl/internal/cli"
)

func main() {
	// The first interrupt cancels the run: the orchestrator stops before the
	// next site and the browser is closed on the way out. A second one kills
	// the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-done:
				return
			default:
			}
			stop()
			log.Warn().Msg("Interrupt received, shutting down gracefully...")
		case <-done:
		}
	}()

	cli.ExecuteContext(ctx)
}
