// Package api serves the wishlist JSON API over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"

	"github.com/syahfalah4787/wishlist-bug/internal/blob"
	"github.com/syahfalah4787/wishlist-bug/internal/storage"
)

// DefaultActor is recorded in the audit trail when a request names no actor
const DefaultActor = "api"

// ActorHeader lets clients name themselves in the audit trail
const ActorHeader = "X-Actor"

// Options tunes the handler
type Options struct {
	// MaxUploadBytes caps the size of item creation requests
	MaxUploadBytes int64
	// RateLimit is the sustained rate for mutating requests; 0 disables limiting
	RateLimit rate.Limit
	Burst     int
	// Now is the clock used for upload names and download file names
	Now func() time.Time
}

// Handler routes API requests to the store and blob store.
// A nil store is allowed: the changelog then reports a configuration error
// and every other data route answers 503.
type Handler struct {
	store          storage.Storage
	blobs          *blob.Store
	log            logr.Logger
	maxUploadBytes int64
	limiter        *rate.Limiter
	now            func() time.Time
	root           http.Handler
}

// New creates the API handler
func New(store storage.Storage, blobs *blob.Store, log logr.Logger, opts Options) *Handler {
	h := &Handler{
		store:          store,
		blobs:          blobs,
		log:            log,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            opts.Now,
	}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = 10 << 20
	}
	if h.now == nil {
		h.now = time.Now
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /api/stats", h.requireStore(h.stats))

	mux.HandleFunc("GET /api/categories", h.requireStore(h.listCategories))
	mux.HandleFunc("POST /api/categories", h.requireStore(h.createCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", h.requireStore(h.deleteCategory))

	mux.HandleFunc("GET /api/items", h.requireStore(h.listItems))
	mux.HandleFunc("POST /api/items", h.requireStore(h.createItem))
	mux.HandleFunc("GET /api/items/{id}/events", h.requireStore(h.itemEvents))
	mux.HandleFunc("PATCH /api/items/{id}", h.requireStore(h.updateItemStatus))
	mux.HandleFunc("DELETE /api/items/{id}", h.requireStore(h.deleteItem))

	mux.HandleFunc("GET /api/changelog", h.getChangelog)
	mux.HandleFunc("GET /api/changelog/download", h.downloadChangelog)

	if blobs != nil {
		mux.HandleFunc("GET "+blobs.Prefix()+"/{name}", h.serveImage)
	}

	h.root = h.recoverPanics(h.logRequests(h.rateLimit(mux)))
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

func (h *Handler) requireStore(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.store == nil {
			writeError(w, http.StatusServiceUnavailable, "item store is not configured")
			return
		}
		next(w, r)
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unconfigured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStatistics(r.Context())
	if err != nil {
		h.internalError(w, "failed to get statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: stats})
}

func actor(r *http.Request) string {
	if a := r.Header.Get(ActorHeader); a != "" {
		return a
	}
	return DefaultActor
}
