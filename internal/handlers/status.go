package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmodel/portal/internal/models"
)

// StatusStore mutates the review status of a submission record.
type StatusStore interface {
	UpdateProductStatus(ctx context.Context, id, status string) error
	UpdateModelStatus(ctx context.Context, id, status string) error
}

// Publisher signals the change feed after a status write.
type Publisher interface {
	Publish(ctx context.Context, collection string) error
}

// StatusHandler handles review-status updates for one collection
type StatusHandler struct {
	store      StatusStore
	feed       Publisher
	collection string
}

// NewStatusHandler creates a status handler for the named collection
func NewStatusHandler(store StatusStore, feed Publisher, collection string) *StatusHandler {
	return &StatusHandler{store: store, feed: feed, collection: collection}
}

type statusRequest struct {
	Status string `json:"status"`
}

// ServeHTTP handles PATCH /products/{id}/status and
// PATCH /models/{id}/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "update_status")
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(
		attribute.String("collection", h.collection),
		attribute.String("record_id", id),
	)

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.RecordError(err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !models.ValidStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Status must be pending, approved or rejected")
		return
	}

	var err error
	switch h.collection {
	case models.CollectionProducts:
		err = h.store.UpdateProductStatus(ctx, id, req.Status)
	case models.CollectionModels:
		err = h.store.UpdateModelStatus(ctx, id, req.Status)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		span.RecordError(err)
		writeErrorWithDetails(w, http.StatusInternalServerError, "Failed to update status", err.Error())
		return
	}

	if err := h.feed.Publish(ctx, h.collection); err != nil {
		log.Printf("Warning: failed to publish %s change: %v", h.collection, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
