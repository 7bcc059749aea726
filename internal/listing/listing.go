// Package listing serves the live submission views: ordered snapshots that
// refresh whenever the underlying collection changes, plus local free-text
// search over a delivered snapshot.
package listing

import (
	"context"
	"strings"
	"sync"

	"github.com/dmodel/portal/internal/models"
)

// Lister reads ordered, optionally owner-filtered record sets.
type Lister interface {
	ListProducts(ctx context.Context, sellerEmail string) ([]*models.Product, error)
	ListModels(ctx context.Context, sellerEmail string) ([]*models.Model, error)
}

// ChangeFeed delivers a signal per collection change.
type ChangeFeed interface {
	Subscribe(ctx context.Context, collection string) (<-chan struct{}, func(), error)
}

// ProductSnapshot is one full, freshly ordered product result set. A
// snapshot with a non-nil Err is terminal; the stream closes after it.
type ProductSnapshot struct {
	Products []*models.Product
	Err      error
}

// ModelSnapshot is the model-collection counterpart of ProductSnapshot.
type ModelSnapshot struct {
	Models []*models.Model
	Err    error
}

// Service produces live listing streams and one-shot filtered lists.
type Service struct {
	lister Lister
	feed   ChangeFeed
}

// NewService creates a listing service
func NewService(lister Lister, feed ChangeFeed) *Service {
	return &Service{lister: lister, feed: feed}
}

// Products returns the current product list, owner-filtered at the
// repository and free-text searched locally.
func (s *Service) Products(ctx context.Context, sellerEmail, query string) ([]*models.Product, error) {
	list, err := s.lister.ListProducts(ctx, sellerEmail)
	if err != nil {
		return nil, err
	}
	return SearchProducts(list, query), nil
}

// Models returns the current model list, owner-filtered and searched.
func (s *Service) Models(ctx context.Context, sellerEmail, query string) ([]*models.Model, error) {
	list, err := s.lister.ListModels(ctx, sellerEmail)
	if err != nil {
		return nil, err
	}
	return SearchModels(list, query), nil
}

// WatchProducts emits an initial snapshot, then a fresh one per change-feed
// signal. The stream ends on a terminal error snapshot, on context
// cancellation, or when cancel is called; cancel is idempotent.
func (s *Service) WatchProducts(ctx context.Context, sellerEmail string) (<-chan ProductSnapshot, func()) {
	out := make(chan ProductSnapshot, 1)
	ctx, stop := context.WithCancel(ctx)

	var once sync.Once
	cancel := func() {
		once.Do(stop)
	}

	signals, unsubscribe, err := s.feed.Subscribe(ctx, models.CollectionProducts)
	if err != nil {
		out <- ProductSnapshot{Err: err}
		close(out)
		return out, cancel
	}

	go func() {
		defer close(out)
		defer unsubscribe()

		emit := func() bool {
			list, err := s.lister.ListProducts(ctx, sellerEmail)
			if err != nil {
				send(ctx, out, ProductSnapshot{Err: err})
				return false
			}
			return send(ctx, out, ProductSnapshot{Products: list})
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out, cancel
}

// WatchModels mirrors WatchProducts for the models collection.
func (s *Service) WatchModels(ctx context.Context, sellerEmail string) (<-chan ModelSnapshot, func()) {
	out := make(chan ModelSnapshot, 1)
	ctx, stop := context.WithCancel(ctx)

	var once sync.Once
	cancel := func() {
		once.Do(stop)
	}

	signals, unsubscribe, err := s.feed.Subscribe(ctx, models.CollectionModels)
	if err != nil {
		out <- ModelSnapshot{Err: err}
		close(out)
		return out, cancel
	}

	go func() {
		defer close(out)
		defer unsubscribe()

		emit := func() bool {
			list, err := s.lister.ListModels(ctx, sellerEmail)
			if err != nil {
				send(ctx, out, ModelSnapshot{Err: err})
				return false
			}
			return send(ctx, out, ModelSnapshot{Models: list})
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out, cancel
}

func send[T any](ctx context.Context, out chan<- T, snap T) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}

// SearchProducts filters a delivered snapshot locally: case-insensitive
// substring match on product name, token, and seller name. An empty query
// returns the list unchanged.
func SearchProducts(list []*models.Product, query string) []*models.Product {
	if query == "" {
		return list
	}
	q := strings.ToLower(query)
	var out []*models.Product
	for _, p := range list {
		if strings.Contains(strings.ToLower(p.ProductName), q) ||
			strings.Contains(p.Token, q) ||
			strings.Contains(strings.ToLower(p.SellerName), q) {
			out = append(out, p)
		}
	}
	return out
}

// SearchModels filters a delivered snapshot locally on file name and
// seller email.
func SearchModels(list []*models.Model, query string) []*models.Model {
	if query == "" {
		return list
	}
	q := strings.ToLower(query)
	var out []*models.Model
	for _, m := range list {
		if strings.Contains(strings.ToLower(m.FileName), q) ||
			strings.Contains(strings.ToLower(m.SellerEmail), q) {
			out = append(out, m)
		}
	}
	return out
}
