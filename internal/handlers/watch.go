package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmodel/portal/internal/listing"
	"github.com/dmodel/portal/internal/models"
)

// Watcher is the live-subscription surface the SSE handler depends on.
type Watcher interface {
	WatchProducts(ctx context.Context, sellerEmail string) (<-chan listing.ProductSnapshot, func())
	WatchModels(ctx context.Context, sellerEmail string) (<-chan listing.ModelSnapshot, func())
}

// WatchHandler streams live collection snapshots over server-sent events
type WatchHandler struct {
	watcher    Watcher
	collection string
}

// NewWatchHandler creates an SSE watch handler for the named collection
func NewWatchHandler(watcher Watcher, collection string) *WatchHandler {
	return &WatchHandler{watcher: watcher, collection: collection}
}

// ServeHTTP handles GET /watch/products and GET /watch/models. Each
// snapshot is one data event carrying the full ordered record list; a
// terminal repository error is sent as an error event before the stream
// closes. The subscription is released when the client disconnects.
func (h *WatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "watch_"+h.collection)
	defer span.End()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	if h.collection != models.CollectionProducts && h.collection != models.CollectionModels {
		http.NotFound(w, r)
		return
	}

	sellerEmail := r.URL.Query().Get("sellerEmail")
	span.SetAttributes(attribute.Bool("owner_filtered", sellerEmail != ""))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if h.collection == models.CollectionProducts {
		snapshots, cancel := h.watcher.WatchProducts(ctx, sellerEmail)
		defer cancel()
		for snap := range snapshots {
			if snap.Products == nil {
				snap.Products = []*models.Product{}
			}
			if !writeEvent(w, flusher, snap.Products, snap.Err) {
				return
			}
		}
		return
	}

	snapshots, cancel := h.watcher.WatchModels(ctx, sellerEmail)
	defer cancel()
	for snap := range snapshots {
		if snap.Models == nil {
			snap.Models = []*models.Model{}
		}
		if !writeEvent(w, flusher, snap.Models, snap.Err) {
			return
		}
	}
}

// writeEvent emits one SSE frame; it returns false once the stream is done.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, records any, snapErr error) bool {
	if snapErr != nil {
		writeErrorEvent(w, flusher, snapErr.Error())
		return false
	}

	body, err := json.Marshal(records)
	if err != nil {
		writeErrorEvent(w, flusher, err.Error())
		return false
	}

	fmt.Fprintf(w, "data: %s\n\n", body)
	flusher.Flush()
	return true
}

// writeErrorEvent JSON-encodes the message; a raw newline in an error
// string would otherwise split the SSE frame.
func writeErrorEvent(w http.ResponseWriter, flusher http.Flusher, message string) {
	payload, _ := json.Marshal(message)
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", payload)
	flusher.Flush()
}
