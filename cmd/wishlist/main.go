package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/syahfalah4787/wishlist-bug/internal/blob"
	"github.com/syahfalah4787/wishlist-bug/internal/config"
	"github.com/syahfalah4787/wishlist-bug/internal/logging"
	"github.com/syahfalah4787/wishlist-bug/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// Command annotations controlling how the root pre-run opens the store
const (
	annotationNoStore       = "wishlist/no-store"
	annotationOptionalStore = "wishlist/optional-store"
)

var (
	dbFlag       string
	configFlag   string
	logLevelFlag string
)

// app holds what a command runs against. The root pre-run builds one and
// attaches it to the command context.
type app struct {
	cfg    *config.Config
	log    logr.Logger
	flush  func()
	store  storage.Storage
	dbPath string
}

type appKey struct{}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}

// appFrom returns the app attached to cmd, or an empty one without a store
func appFrom(cmd *cobra.Command) *app {
	if ctx := cmd.Context(); ctx != nil {
		if a, ok := ctx.Value(appKey{}).(*app); ok {
			return a
		}
	}
	return &app{log: logr.Discard(), flush: func() {}}
}

var rootCmd = &cobra.Command{
	Use:     "wishlist",
	Short:   "Track bugs and feature requests and publish a changelog",
	Version: version,
	Long: `wishlist tracks work items (bugs, new features, feature updates) grouped by
category, and turns the finished ones into a plain-text changelog.

Data lives in .wishlist/<name>.db in the current directory. Run "wishlist init"
to create it, then "wishlist serve" to expose the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		a, err := newApp(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cmd.SetContext(withApp(cmd.Context(), a))
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		appFrom(cmd).close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Database path (default: discover .wishlist/*.db)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: .wishlist/config.yml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp loads config, builds the logger and opens the store for cmd
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: configFlag})
	if err != nil {
		return nil, err
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}

	log, flush, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, flush: flush}

	if _, ok := cmd.Annotations[annotationNoStore]; ok {
		return a, nil
	}

	a.dbPath, err = resolveDBPath(cfg)
	if err == nil {
		a.store, err = storage.NewStorage(context.Background(), &storage.Config{Path: a.dbPath})
	}
	if err != nil {
		if _, ok := cmd.Annotations[annotationOptionalStore]; ok {
			a.log.Error(err, "item store unavailable", "db", a.dbPath)
			a.store = nil
			return a, nil
		}
		a.flush()
		return nil, err
	}
	a.log.V(1).Info("opened item store", "db", a.dbPath)
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
		a.store = nil
	}
	if a.flush != nil {
		a.flush()
	}
}

// exitOnError prints err and exits with status 1
func (a *app) exitOnError(err error) {
	if err == nil {
		return
	}
	a.close()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// resolveDBPath picks the database: --db, then db_path from config or
// WISHLIST_DB_PATH, then the first .wishlist/*.db in the current directory.
func resolveDBPath(cfg *config.Config) (string, error) {
	if dbFlag != "" {
		return dbFlag, nil
	}
	if cfg != nil && cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	path, err := storage.DiscoverDatabase()
	if err != nil {
		return "", &storage.ConfigError{Err: err}
	}
	return path, nil
}

// imageStore returns the blob store for item images, or nil without config
func (a *app) imageStore() *blob.Store {
	if a.cfg == nil {
		return nil
	}
	return blob.NewStore(a.log.WithName("blob"), a.cfg.ImageDir, a.cfg.ImageURLPrefix)
}
