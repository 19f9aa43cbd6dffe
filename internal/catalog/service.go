package catalog

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fjod/storefront/internal/api"
	"github.com/fjod/storefront/internal/domain"
	"golang.org/x/sync/singleflight"
)

var ErrItemNotFound = errors.New("item not found in catalog")

// Getter is the part of api.Client the catalog needs.
type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

type Service struct {
	client Getter
	cache  Cache
	sfg    singleflight.Group // Prevents cache stampede
}

// NewService builds the catalog. cache may be nil, then every call goes
// upstream.
func NewService(client Getter, cache Cache) *Service {
	return &Service{
		client: client,
		cache:  cache,
	}
}

// Items returns the catalog. A failing upstream is logged and yields an
// empty catalog rather than an error.
func (s *Service) Items(ctx context.Context) []domain.Item {
	v, _, _ := s.sfg.Do("items", func() (interface{}, error) {
		if s.cache != nil {
			items, err := s.cache.Get(ctx)
			if err == nil {
				return items, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				log.Printf("catalog cache get error: %v", err) // log cache error but continue
			}
		}

		items, err := s.fetch(ctx)
		if err != nil {
			log.Printf("failed to fetch catalog: %v", err)
			return []domain.Item{}, nil
		}

		if s.cache != nil {
			go func() {
				setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := s.cache.Set(setCtx, items); err != nil {
					log.Printf("catalog cache set error: %v", err)
				}
			}()
		}
		return items, nil
	})

	return v.([]domain.Item)
}

// Item looks up a single catalog entry by id.
func (s *Service) Item(ctx context.Context, id string) (domain.Item, error) {
	for _, item := range s.Items(ctx) {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.Item{}, ErrItemNotFound
}

func (s *Service) fetch(ctx context.Context) ([]domain.Item, error) {
	var resp api.ListResponse[domain.Item]
	if err := s.client.Get(ctx, "/product/", &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return []domain.Item{}, nil
	}
	return resp.Items, nil
}
