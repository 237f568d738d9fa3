package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/syahfalah4787/wishlist-bug/internal/api"
	"github.com/syahfalah4787/wishlist-bug/internal/blob"
	"github.com/syahfalah4787/wishlist-bug/internal/server"
	"github.com/syahfalah4787/wishlist-bug/internal/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the wishlist HTTP API",
	Long: `Run the HTTP API until interrupted.

The server holds an exclusive lock on the database directory, so only one
server runs per tracker. SIGINT or SIGTERM triggers a graceful shutdown
bounded by shutdown_timeout.

Example:
  wishlist serve
  wishlist serve --addr 127.0.0.1:9000
  WISHLIST_RATE_LIMIT__RPS=0 wishlist serve   # disable rate limiting`,
	Run: func(cmd *cobra.Command, args []string) {
		a := appFrom(cmd)
		if serveAddr != "" {
			a.cfg.Addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a.exitOnError(a.runServe(ctx))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config addr)")
	rootCmd.AddCommand(serveCmd)
}

func (a *app) runServe(ctx context.Context) error {
	var lock *storage.Lock
	if a.dbPath != ":memory:" {
		var err error
		lock, err = storage.AcquireLock(a.dbPath, storage.ServeLock{Addr: a.cfg.Addr, Version: version})
		var held *storage.LockHeldError
		if errors.As(err, &held) {
			return fmt.Errorf("another wishlist server is already running at http://%s (PID %d on %s); stop it or use --db", held.Holder.Addr, held.Holder.PID, held.Holder.Hostname)
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				a.log.Error(err, "failed to release lock", "path", lock.Path())
			}
		}()
	}

	blobs := blob.NewStore(a.log.WithName("blob"), a.cfg.ImageDir, a.cfg.ImageURLPrefix)
	handler := api.New(a.store, blobs, a.log.WithName("api"), api.Options{
		MaxUploadBytes: a.cfg.MaxUploadBytes(),
		RateLimit:      rate.Limit(a.cfg.RateLimit.RPS),
		Burst:          a.cfg.RateLimit.Burst,
	})
	srv := server.NewServer(a.cfg.Addr, handler, server.Options{
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
	}, a.log.WithName("server"))

	if err := srv.Start(ctx); err != nil {
		return err
	}
	if lock != nil {
		if err := lock.SetAddr(srv.Addr()); err != nil {
			a.log.Error(err, "failed to record serve address", "path", lock.Path())
		}
	}

	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s Serving %s on http://%s\n", green("✓"), cyan(a.dbPath), srv.Addr())
	a.log.Info("serving", "config", a.cfg.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-srv.Done():
			if err := srv.Err(); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	err := g.Wait()
	fmt.Printf("Server stopped at %s\n", time.Now().Format("15:04:05"))
	return err
}
