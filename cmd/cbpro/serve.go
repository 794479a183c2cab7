package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/cbpro-client/pkg/cbpro"
	"github.com/Sternrassler/cbpro-client/pkg/logging"
	"github.com/Sternrassler/cbpro-client/pkg/metrics"
	"github.com/Sternrassler/cbpro-client/pkg/pagination"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve trade history as NDJSON over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a.cfg.Listen, newServer(a.public, a.redis, a.cfg.PageLimit))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")

	return cmd
}

// serve runs handler on addr until ctx ends.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	logger := logging.NewLogger("serve")

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// server exposes health, metrics and streamed trade history.
type server struct {
	public    *cbpro.PublicClient
	redis     *redis.Client
	pageLimit int
	logger    zerolog.Logger
}

func newServer(public *cbpro.PublicClient, redisClient *redis.Client, pageLimit int) http.Handler {
	s := &server{
		public:    public,
		redis:     redisClient,
		pageLimit: pageLimit,
		logger:    logging.NewLogger("serve"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /trades/{product}", s.tradesHandler)

	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports whether the cache backend is reachable. Without a
// cache there is nothing to wait for.
func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("Redis not reachable")
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// tradesHandler streams a product's trade history, one trade per line.
// Query: limit (page size), pages (0 for all, default 1). The stream is
// bound to the request, so a client disconnect cancels the page in flight.
func (s *server) tradesHandler(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("product")

	limit, err := queryInt(r, "limit", s.pageLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	pages, err := queryInt(r, "pages", 1)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	trades, err := s.public.Trades(ctx, productID, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer trades.Close()

	logger := s.logger.With().Str("product", productID).Logger()
	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)

	n := 0
	wrote := false
	for page, err := range trades.All(ctx) {
		n++
		if err != nil {
			var decodeErr *pagination.DecodeError
			if errors.As(err, &decodeErr) {
				logger.Warn().Err(err).Int("page", decodeErr.Page).Msg("Skipping undecodable trade page")
				if pages > 0 && n >= pages {
					break
				}
				continue
			}

			logger.Warn().Err(err).Int("pages", n-1).Msg("Trade stream ended with error")
			if !wrote {
				http.Error(w, err.Error(), http.StatusBadGateway)
			}
			return
		}

		items, ok := page.([]any)
		if !ok {
			// Error documents carry no cursor and end the listing.
			if !wrote {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadGateway)
				enc.Encode(page)
			}
			return
		}

		if !wrote {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			wrote = true
		}
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				logger.Debug().Err(err).Msg("Client went away")
				return
			}
		}
		rc.Flush()

		if pages > 0 && n >= pages {
			break
		}
	}

	if !wrote {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
	}
	logger.Debug().Int("pages", n).Msg("Trade stream served")
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer (got %q)", name, raw)
	}
	return n, nil
}
