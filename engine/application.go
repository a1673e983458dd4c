package engine

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

// RunApplication boots, runs and tears the engine down. SIGINT and SIGTERM
// end the loop after the current frame.
func RunApplication(g *Game) error {
	e, err := New(g)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			core.LogInfo("signal received, stopping")
			e.Stop()
		}
	}()

	if err := e.Initialize(); err != nil {
		e.Shutdown()
		return err
	}
	runErr := e.Run()
	e.Shutdown()
	return runErr
}
