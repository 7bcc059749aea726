package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmodel/portal/internal/handlers"
	"github.com/dmodel/portal/internal/listing"
	"github.com/dmodel/portal/internal/models"
)

type fakeWatcher struct {
	productSnaps []listing.ProductSnapshot
	modelSnaps   []listing.ModelSnapshot
	lastEmail    string
}

func (f *fakeWatcher) WatchProducts(ctx context.Context, sellerEmail string) (<-chan listing.ProductSnapshot, func()) {
	f.lastEmail = sellerEmail
	out := make(chan listing.ProductSnapshot, len(f.productSnaps))
	for _, s := range f.productSnaps {
		out <- s
	}
	close(out)
	return out, func() {}
}

func (f *fakeWatcher) WatchModels(ctx context.Context, sellerEmail string) (<-chan listing.ModelSnapshot, func()) {
	f.lastEmail = sellerEmail
	out := make(chan listing.ModelSnapshot, len(f.modelSnaps))
	for _, s := range f.modelSnaps {
		out <- s
	}
	close(out)
	return out, func() {}
}

func TestWatchProducts_StreamsSnapshots(t *testing.T) {
	watcher := &fakeWatcher{
		productSnaps: []listing.ProductSnapshot{
			{Products: []*models.Product{{ID: "1", ProductName: "Lamp"}}},
			{Products: []*models.Product{{ID: "2", ProductName: "Chair"}, {ID: "1", ProductName: "Lamp"}}},
		},
	}
	handler := handlers.NewWatchHandler(watcher, models.CollectionProducts)

	req := httptest.NewRequest(http.MethodGet, "/watch/products?sellerEmail=a@b.com", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "a@b.com", watcher.lastEmail)

	frames := strings.Split(strings.TrimSpace(rec.Body.String()), "\n\n")
	require.Len(t, frames, 2)
	assert.True(t, strings.HasPrefix(frames[0], "data: "))
	assert.Contains(t, frames[0], `"productName":"Lamp"`)
	assert.Contains(t, frames[1], `"productName":"Chair"`)
}

func TestWatchModels_TerminalError(t *testing.T) {
	watcher := &fakeWatcher{
		modelSnaps: []listing.ModelSnapshot{
			{Models: []*models.Model{{ID: "m1", FileName: "1-chair.glb"}}},
			{Err: errors.New("connection lost")},
		},
	}
	handler := handlers.NewWatchHandler(watcher, models.CollectionModels)

	req := httptest.NewRequest(http.MethodGet, "/watch/models", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, `"fileName":"1-chair.glb"`)
	assert.Contains(t, body, "event: error\ndata: \"connection lost\"")
}

func TestWatchProducts_EmptyCollectionEmitsEmptyList(t *testing.T) {
	// A nil snapshot must reach the wire as [], never null
	watcher := &fakeWatcher{
		productSnaps: []listing.ProductSnapshot{{Products: nil}},
	}
	handler := handlers.NewWatchHandler(watcher, models.CollectionProducts)

	req := httptest.NewRequest(http.MethodGet, "/watch/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "data: []\n\n", rec.Body.String())
}

func TestWatchModels_EmptyCollectionEmitsEmptyList(t *testing.T) {
	watcher := &fakeWatcher{
		modelSnaps: []listing.ModelSnapshot{{Models: nil}},
	}
	handler := handlers.NewWatchHandler(watcher, models.CollectionModels)

	req := httptest.NewRequest(http.MethodGet, "/watch/models", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "data: []\n\n", rec.Body.String())
}

func TestWatchProducts_MultilineErrorKeepsFraming(t *testing.T) {
	watcher := &fakeWatcher{
		productSnaps: []listing.ProductSnapshot{
			{Err: errors.New("dial tcp:\nconnection refused")},
		},
	}
	handler := handlers.NewWatchHandler(watcher, models.CollectionProducts)

	req := httptest.NewRequest(http.MethodGet, "/watch/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// The newline stays inside the JSON string, so the frame is one
	// event line and one data line
	assert.Equal(t, "event: error\ndata: \"dial tcp:\\nconnection refused\"\n\n", rec.Body.String())
}
