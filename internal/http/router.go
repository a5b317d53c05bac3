package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/blob"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/screen"
	"github.com/fjod/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Carts     *service.CartService
	Store     repository.DocumentStore
	Blobs     blob.Storage
	Submitter screen.Submitter
	Metrics   *metrics.ServerMetrics
	Log       logrus.FieldLogger

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	MaxUploadSize      int64

	// Ping reports whether the backing services are reachable; nil means always healthy.
	Ping func(ctx context.Context) error
	// StreamsDone is closed when the server starts shutting down, ending live streams that
	// would otherwise hold Shutdown until its deadline. Nil keeps streams open until clients leave.
	StreamsDone <-chan struct{}
}

func NewRouter(cfg RouterConfig) http.Handler {
	cartHandler := NewCartHandler(cfg.Carts, cfg.Store, cfg.Submitter, cfg.Metrics, cfg.RequestTimeout)
	docsHandler := NewDocumentsHandler(cfg.Store, cfg.Metrics, cfg.RequestTimeout, cfg.StreamsDone)
	blobHandler := NewBlobHandler(cfg.Blobs, cfg.MaxUploadSize, cfg.RequestTimeout)
	navHandler := NewNavHandler(cfg.Carts)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ensureSessionID)
	r.Use(requestLogger(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(cfg.Metrics.Middleware)
	r.Use(MockAuthMiddleware)

	r.Get("/health", health(cfg.Ping))
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.With(middleware.Timeout(cfg.RequestTimeout)).Get("/blobs/{id}", blobHandler.Download)

	r.Route("/api/v1", func(r chi.Router) {
		// live streams stay open for as long as the client listens
		r.Get("/{collection}/stream", docsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.Compress(5))

			r.Post("/blobs", blobHandler.Upload)
			r.Get("/nav", navHandler.View)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", cartHandler.GetCart)
					r.Delete("/", cartHandler.ClearCart)
					r.Post("/items", cartHandler.AddItem)
					r.Put("/items/{id}", cartHandler.UpdateQuantity)
					r.Delete("/items/{id}", cartHandler.RemoveItem)
					r.Post("/checkout", cartHandler.Checkout)
				})

				r.Get("/{collection}", docsHandler.List)
				r.Post("/{collection}", docsHandler.Create)
				r.Get("/{collection}/{id}", docsHandler.Get)
				r.Put("/{collection}/{id}", docsHandler.Update)
				r.Delete("/{collection}/{id}", docsHandler.Delete)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}

// StreamsDoneOnShutdown returns a channel that is closed once srv begins shutting down, for
// RouterConfig.StreamsDone.
func StreamsDoneOnShutdown(srv *http.Server) <-chan struct{} {
	done := make(chan struct{})
	srv.RegisterOnShutdown(sync.OnceFunc(func() { close(done) }))
	return done
}

func health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				respondJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
