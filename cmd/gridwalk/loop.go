package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	coresys "github.com/gridwalk/gridwalk/internal/core/system"
	"go.uber.org/zap"
)

// runLoop ticks the runner at a fixed rate until SIGINT/SIGTERM arrives or
// done is closed. A nil done never fires.
func runLoop(runner *coresys.Runner, tickRate time.Duration, done <-chan struct{}, log *zap.Logger) {
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runner.Tick(tickRate)
		case <-done:
			return
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			return
		}
	}
}
