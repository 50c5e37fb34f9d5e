package handlers

import (
	"chatapp-client/internal/client"
	"chatapp-client/internal/database"
	"chatapp-client/internal/metrics"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	client  *client.Client
	archive *database.Archive
	metrics *metrics.Metrics
	streams *streams
	sugar   *zap.SugaredLogger
}

// NewRouter serves a read-only view of the mirror. archive and m may be nil.
func NewRouter(c *client.Client, archive *database.Archive, m *metrics.Metrics, printRequests bool, sugar *zap.SugaredLogger) http.Handler {
	return newHandlers(c, archive, m, sugar).router(printRequests)
}

func newHandlers(c *client.Client, archive *database.Archive, m *metrics.Metrics, sugar *zap.SugaredLogger) *Handlers {
	h := &Handlers{
		client:  c,
		archive: archive,
		metrics: m,
		streams: newStreams(c.Hub, sugar),
		sugar:   sugar,
	}
	c.Hub.SubscribeAll(h.streams.broadcast)
	return h
}

func (h *Handlers) router(printRequests bool) http.Handler {
	r := chi.NewRouter()
	if printRequests {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(10 * time.Second))
		api.Get("/status", h.GetStatus)
		api.Get("/servers", h.GetServerList)
		api.Get("/channels/{channelID}/messages", h.GetMessageList)
		api.Get("/users/{userID}", h.GetUser)
	})

	r.Get("/ws", h.HandleWebSocket)
	r.Handle("/metrics", h.metrics.Handler())

	return r
}

// Serve runs the router until ctx is cancelled.
func Serve(ctx context.Context, address string, handler http.Handler, sugar *zap.SugaredLogger) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Error(err)
		}
	}()

	sugar.Infof("Status API listening on %s", address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
