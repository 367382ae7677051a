package remote

import (
	"context"
	"errors"
	"fmt"
)

// CartService is the backend's view of the cart. It only knows product
// membership: there is no quantity or variant in the toggle call.
type CartService interface {
	FetchCartItems(ctx context.Context, q PageQuery) (*Page, error)
	ToggleCartItem(ctx context.Context, productID string) error
}

// PageQuery mirrors the backend's pageable parameters. Zero values are
// omitted from the request so the backend defaults apply.
type PageQuery struct {
	Page int
	Size int
	Sort string
}

// Record is one backend item as decoded from JSON. Key spellings vary
// between endpoints; see NormalizeRecord.
type Record map[string]any

type Page struct {
	Content    []Record `json:"content"`
	Last       bool     `json:"last"`
	TotalPages int      `json:"totalPages"`
	Number     int      `json:"number"`
}

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("cart service unavailable")

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("cart service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("cart service returned status %d: %s", e.StatusCode, e.Body)
}

const defaultMaxPages = 50

// FetchAll walks pages starting at page 0 until the backend reports the last
// page, the page comes back empty, or maxPages pages were read.
func FetchAll(ctx context.Context, svc CartService, size, maxPages int) ([]Record, error) {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var out []Record
	for page := 0; page < maxPages; page++ {
		p, err := svc.FetchCartItems(ctx, PageQuery{Page: page, Size: size})
		if err != nil {
			return nil, fmt.Errorf("fetch cart page %d: %w", page, err)
		}
		out = append(out, p.Content...)
		if p.Last || len(p.Content) == 0 || (p.TotalPages > 0 && page+1 >= p.TotalPages) {
			break
		}
	}
	return out, nil
}
