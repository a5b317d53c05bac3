package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/live"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/repository"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
)

var errInvalidBody = errors.New("invalid JSON body")

// resource describes one collection served over HTTP.
type resource interface {
	list(ctx context.Context, store repository.DocumentStore) (any, error)
	get(ctx context.Context, store repository.DocumentStore, id string) (any, error)
	subscribe(ctx context.Context, store repository.DocumentStore, onSnapshot func(any), opts ...live.Option) (*live.Subscription, error)
	// fields parses a request body into the fields to store; create is false for updates.
	fields(body io.Reader, create bool) (bson.M, error)
}

type typedResource[T any] struct {
	collection string
	query      repository.Query
	parse      func(body io.Reader, create bool) (bson.M, error)
}

func (res typedResource[T]) list(ctx context.Context, store repository.DocumentStore) (any, error) {
	docs, err := store.List(ctx, res.collection, res.query)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := live.DecodeInto[T](doc)
		if err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", res.collection, doc.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (res typedResource[T]) get(ctx context.Context, store repository.DocumentStore, id string) (any, error) {
	doc, err := store.Get(ctx, res.collection, id)
	if err != nil {
		return nil, err
	}
	return live.DecodeInto[T](doc)
}

func (res typedResource[T]) subscribe(
	ctx context.Context,
	store repository.DocumentStore,
	onSnapshot func(any),
	opts ...live.Option,
) (*live.Subscription, error) {
	return live.Subscribe(ctx, store, res.collection, res.query, live.DecodeInto[T],
		func(items []T) { onSnapshot(items) }, opts...)
}

func (res typedResource[T]) fields(body io.Reader, create bool) (bson.M, error) {
	return res.parse(body, create)
}

func decodeBody(body io.Reader, v any) error {
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

func postFields(body io.Reader, _ bool) (bson.M, error) {
	var req struct {
		Message string `json:"message"`
		Author  string `json:"author"`
	}
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	post, err := domain.NewPost(req.Message, req.Author)
	if err != nil {
		return nil, err
	}
	return post.Fields(), nil
}

func userFields(body io.Reader, _ bool) (bson.M, error) {
	var u domain.User
	if err := decodeBody(body, &u); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u.Fields(), nil
}

// productFields requires an image on create; an update without one keeps the stored image.
func productFields(body io.Reader, create bool) (bson.M, error) {
	var p domain.Product
	if err := decodeBody(body, &p); err != nil {
		return nil, err
	}
	if create && p.ImageURL == "" {
		return nil, domain.NewValidationError("image_url", "please choose an image for the product")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p.Fields(), nil
}

func defaultResources() map[string]resource {
	return map[string]resource{
		domain.PostsCollection: typedResource[domain.Post]{
			collection: domain.PostsCollection,
			parse:      postFields,
		},
		domain.UsersCollection: typedResource[domain.User]{
			collection: domain.UsersCollection,
			parse:      userFields,
		},
		domain.ProductsCollection: typedResource[domain.Product]{
			collection: domain.ProductsCollection,
			query:      repository.Query{OrderBy: repository.CreatedAtField, Descending: true},
			parse:      productFields,
		},
	}
}

type DocumentsHandler struct {
	store     repository.DocumentStore
	resources map[string]resource
	metrics   *metrics.ServerMetrics
	timeout   time.Duration
	// closing shutdown ends every open stream
	shutdown <-chan struct{}
}

func NewDocumentsHandler(
	store repository.DocumentStore,
	m *metrics.ServerMetrics,
	timeout time.Duration,
	shutdown <-chan struct{},
) *DocumentsHandler {
	return &DocumentsHandler{
		store:     store,
		resources: defaultResources(),
		metrics:   m,
		timeout:   timeout,
		shutdown:  shutdown,
	}
}

func (h *DocumentsHandler) resource(w http.ResponseWriter, r *http.Request) (string, resource, bool) {
	name := chi.URLParam(r, "collection")
	res, ok := h.resources[name]
	if !ok {
		respondError(w, r, http.StatusNotFound, "unknown_collection", "unknown collection "+name)
	}
	return name, res, ok
}

type CreatedResponseDTO struct {
	ID string `json:"id"`
}

// GET /api/v1/{collection}
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, res, ok := h.resource(w, r)
	if !ok {
		return
	}
	items, err := res.list(ctx, h.store)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, items)
}

// GET /api/v1/{collection}/{id}
func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	_, res, ok := h.resource(w, r)
	if !ok {
		return
	}
	item, err := res.get(ctx, h.store, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, item)
}

// POST /api/v1/{collection}
func (h *DocumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	name, res, ok := h.resource(w, r)
	if !ok {
		return
	}
	fields, err := res.fields(r.Body, true)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	id, err := h.store.Create(ctx, name, fields)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, CreatedResponseDTO{ID: id})
}

// PUT /api/v1/{collection}/{id}
func (h *DocumentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	name, res, ok := h.resource(w, r)
	if !ok {
		return
	}
	fields, err := res.fields(r.Body, false)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.store.Update(ctx, name, chi.URLParam(r, "id"), fields); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/{collection}/{id}
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	name, _, ok := h.resource(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(ctx, name, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentsHandler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errInvalidBody) {
		respondError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	handleError(w, r, err)
}

// GET /api/v1/{collection}/stream
//
// Server-Sent Events: one "snapshot" event carrying the complete list whenever the collection
// changes. The subscription ends when the client goes away or the server shuts down.
func (h *DocumentsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	name, res, ok := h.resource(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, "streaming_unsupported", "streaming unsupported")
		return
	}
	log := logger.FromContext(r.Context()).WithField("collection", name)

	// only the latest snapshot matters; an unsent older one is replaced
	snapshots := make(chan any, 1)
	failures := make(chan string, 1)
	sub, err := res.subscribe(r.Context(), h.store,
		func(items any) {
			select {
			case <-snapshots:
			default:
			}
			snapshots <- items
		},
		live.WithLogger(log),
		live.WithErrorHandler(func(err error) {
			select {
			case failures <- "could not load " + name:
			default:
			}
		}),
	)
	if err != nil {
		handleError(w, r, err)
		return
	}
	defer sub.Unsubscribe()

	h.metrics.LiveStreams.WithLabelValues(name).Inc()
	defer h.metrics.LiveStreams.WithLabelValues(name).Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.shutdown:
			log.Debug("stream closed for shutdown")
			return
		case <-sub.Done():
			return
		case msg := <-failures:
			if err := writeEvent(w, "error", ErrorResponse{Error: msg, Code: "snapshot_failed"}); err != nil {
				return
			}
			flusher.Flush()
		case items := <-snapshots:
			if err := writeEvent(w, "snapshot", items); err != nil {
				log.WithError(err).Debug("stream client gone")
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
