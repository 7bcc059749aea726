package handlers

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmodel/portal/internal/models"
)

// Listings is the query surface the listing and watch handlers depend on.
type Listings interface {
	Products(ctx context.Context, sellerEmail, query string) ([]*models.Product, error)
	Models(ctx context.Context, sellerEmail, query string) ([]*models.Model, error)
}

// ListHandler serves one-shot listings for a single collection
type ListHandler struct {
	listings   Listings
	collection string
}

// NewListHandler creates a listing handler for the named collection
func NewListHandler(listings Listings, collection string) *ListHandler {
	return &ListHandler{listings: listings, collection: collection}
}

// ServeHTTP handles GET /products and GET /models with optional
// sellerEmail and q query parameters.
func (h *ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "list_"+h.collection)
	defer span.End()

	sellerEmail := r.URL.Query().Get("sellerEmail")
	query := r.URL.Query().Get("q")
	span.SetAttributes(
		attribute.Bool("owner_filtered", sellerEmail != ""),
		attribute.Bool("searched", query != ""),
	)

	switch h.collection {
	case models.CollectionProducts:
		list, err := h.listings.Products(ctx, sellerEmail, query)
		if err != nil {
			span.RecordError(err)
			writeErrorWithDetails(w, http.StatusInternalServerError, "Failed to list products", err.Error())
			return
		}
		if list == nil {
			list = []*models.Product{}
		}
		writeJSON(w, http.StatusOK, list)
	case models.CollectionModels:
		list, err := h.listings.Models(ctx, sellerEmail, query)
		if err != nil {
			span.RecordError(err)
			writeErrorWithDetails(w, http.StatusInternalServerError, "Failed to list models", err.Error())
			return
		}
		if list == nil {
			list = []*models.Model{}
		}
		writeJSON(w, http.StatusOK, list)
	default:
		http.NotFound(w, r)
	}
}
