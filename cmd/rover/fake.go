package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/gwillem/rover/pkg/fakerover"
)

type FakeCommand struct {
	Listen string `long:"listen" short:"l" default:"localhost:8080" description:"Address to serve the fake rover on"`
	Path   string `long:"path" default:"/" description:"Websocket path"`
	Hz     int    `long:"hz" default:"30" description:"Control loop frequency (at most 1000)"`
	Noise  int    `long:"noise" default:"0" description:"Send an invalid packet every N ticks (0 disables)"`
	Batch  bool   `long:"batch" description:"Send all packets of a tick in one message"`
}

func (c *FakeCommand) Execute(args []string) error {
	logger, err := newLogger(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rover := fakerover.NewServer(fakerover.Config{
		Hz:         c.Hz,
		NoiseEvery: c.Noise,
		Batch:      c.Batch,
	}, logger.Named("fake"))

	mux := http.NewServeMux()
	mux.Handle(c.Path, rover)

	srv := &http.Server{
		Addr:    c.Listen,
		Handler: mux,
		// Hijacked connections outlive Shutdown; tie their streams to ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Fake rover listening", zap.String("address", c.Listen), zap.String("path", c.Path), zap.Int("hz", c.Hz))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
