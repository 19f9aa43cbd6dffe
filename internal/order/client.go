package order

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// Poster is the part of api.Client the order channel needs.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Client is the submission channel: it persists finished orders upstream.
type Client struct {
	api     Poster
	timeout time.Duration
}

func NewClient(api Poster, timeout time.Duration) *Client {
	return &Client{
		api:     api,
		timeout: timeout,
	}
}

func (c *Client) Submit(ctx context.Context, req domain.OrderRequest) (*domain.Confirmation, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel() // releases resources if Post completes before timeout elapses
	}

	var confirmation domain.Confirmation
	if err := c.api.Post(ctx, "/order/", req, &confirmation); err != nil {
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}
	return &confirmation, nil
}
