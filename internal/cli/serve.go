package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tensorlab/opsched/internal/server"
	"github.com/tensorlab/opsched/pkg/pipeline"
	"github.com/tensorlab/opsched/pkg/store"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		storeKind string
		cacheKind string
		mongoURI  string
		graphTTL  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduling API server",
		Long: `Serve exposes stored graphs over HTTP: submit a document once, then
query execution orders and rendered diagrams for it. Flags default to
the [serve] and [cache] sections of the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, storeKind, cacheKind, mongoURI, graphTTL)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "", "listen address")
	flags.StringVar(&storeKind, "store", "", `graph store backend ("memory" or "mongo")`)
	flags.StringVar(&cacheKind, "cache", "", `result cache backend ("file", "redis", or "none")`)
	flags.StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection string for --store mongo")
	flags.StringVar(&graphTTL, "ttl", "", `stored graph lifetime, e.g. "24h" (empty keeps records forever)`)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, storeKind, cacheKind, mongoURI, graphTTL string) error {
	if addr == "" {
		addr = c.Config.Serve.Addr
	}
	if storeKind == "" {
		storeKind = c.Config.Serve.Store
	}
	if cacheKind == "" {
		cacheKind = c.Config.Cache.Backend
	}
	if mongoURI == "" {
		mongoURI = c.Config.Serve.Mongo.URI
	}
	if graphTTL != "" {
		c.Config.Serve.GraphTTL = graphTTL
	}
	ttl, err := c.Config.graphTTL()
	if err != nil {
		return err
	}

	st, err := c.newStore(ctx, storeKind, mongoURI)
	if err != nil {
		return err
	}
	defer st.Close()

	backend, err := c.newCacheBackend(ctx, cacheKind)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(backend, nil, c.Logger)
	defer runner.Close()

	srv := server.New(server.Config{
		Addr:         addr,
		GraphTTL:     ttl,
		StoreBackend: storeKind,
		CacheBackend: cacheKind,
	}, st, runner, c.Logger)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("server starting", "addr", addr, "store", storeKind, "cache", cacheKind)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	printInfo("Serving on %s", addr)
	printNextStep("Health check", fmt.Sprintf("curl %s/api/v1/health", serveURL(addr)))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// newStore builds the graph store backend for the serve command.
func (c *CLI) newStore(ctx context.Context, kind, mongoURI string) (store.Store, error) {
	switch kind {
	case storeBackendMemory:
		return store.NewMemoryStore(), nil
	case storeBackendMongo:
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:      mongoURI,
			Database: c.Config.Serve.Mongo.Database,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}

// serveURL turns a listen address into a browsable URL. Bare ":8080"
// addresses get a localhost host.
func serveURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
