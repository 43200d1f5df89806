package favorites

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyProductID is returned for a blank product identifier.
var ErrEmptyProductID = errors.New("product id required")

// Querier is the slice of the query layer the favorites service needs.
// Product identifiers are opaque strings here, not catalog foreign keys, so
// an anonymous client can track favorites for identifiers this service has
// never seen.
type Querier interface {
	AddFavorite(ctx context.Context, userID uuid.UUID, productID string) error
	AddFavorites(ctx context.Context, userID uuid.UUID, productIDs []string) error
	RemoveFavorite(ctx context.Context, userID uuid.UUID, productID string) error
	ListFavorites(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Service maintains each user's favorites set.
type Service struct {
	Q Querier
}

// Add records a favorite. Adding one that already exists is a no-op.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrEmptyProductID
	}
	return s.Q.AddFavorite(ctx, userID, productID)
}

// Remove deletes a favorite. Removing one that is absent is a no-op.
func (s *Service) Remove(ctx context.Context, userID uuid.UUID, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrEmptyProductID
	}
	return s.Q.RemoveFavorite(ctx, userID, productID)
}

// List returns every product identifier the user has favorited.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ids, err := s.Q.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Merge folds a client-side favorites list into the stored set. Blank and
// duplicate identifiers are dropped; identifiers already stored stay as they
// are.
func (s *Service) Merge(ctx context.Context, userID uuid.UUID, productIDs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(productIDs))
	cleaned := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	if len(cleaned) > 0 {
		if err := s.Q.AddFavorites(ctx, userID, cleaned); err != nil {
			return nil, err
		}
	}
	return s.List(ctx, userID)
}
