package favorites

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeQueries struct {
	sets map[uuid.UUID]map[string]struct{}
	keys map[uuid.UUID][]string
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		sets: map[uuid.UUID]map[string]struct{}{},
		keys: map[uuid.UUID][]string{},
	}
}

func (f *fakeQueries) AddFavorite(_ context.Context, userID uuid.UUID, productID string) error {
	set, ok := f.sets[userID]
	if !ok {
		set = map[string]struct{}{}
		f.sets[userID] = set
	}
	if _, dup := set[productID]; dup {
		return nil
	}
	set[productID] = struct{}{}
	f.keys[userID] = append(f.keys[userID], productID)
	return nil
}

func (f *fakeQueries) AddFavorites(ctx context.Context, userID uuid.UUID, productIDs []string) error {
	for _, id := range productIDs {
		if err := f.AddFavorite(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeQueries) RemoveFavorite(_ context.Context, userID uuid.UUID, productID string) error {
	set, ok := f.sets[userID]
	if !ok {
		return nil
	}
	if _, present := set[productID]; !present {
		return nil
	}
	delete(set, productID)
	keys := f.keys[userID]
	for i, k := range keys {
		if k == productID {
			f.keys[userID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeQueries) ListFavorites(_ context.Context, userID uuid.UUID) ([]string, error) {
	return append([]string(nil), f.keys[userID]...), nil
}

func TestAddIsIdempotent(t *testing.T) {
	q := newFakeQueries()
	svc := &Service{Q: q}
	userID := uuid.New()

	require.NoError(t, svc.Add(context.Background(), userID, "sku-1"))
	require.NoError(t, svc.Add(context.Background(), userID, "sku-1"))

	ids, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"sku-1"}, ids)
}

func TestAddRejectsBlankID(t *testing.T) {
	svc := &Service{Q: newFakeQueries()}
	require.ErrorIs(t, svc.Add(context.Background(), uuid.New(), "   "), ErrEmptyProductID)
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	q := newFakeQueries()
	svc := &Service{Q: q}
	userID := uuid.New()

	require.NoError(t, svc.Remove(context.Background(), userID, "never-added"))

	require.NoError(t, svc.Add(context.Background(), userID, "sku-2"))
	require.NoError(t, svc.Remove(context.Background(), userID, "sku-2"))
	ids, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestListForNewUserIsEmptyNotNil(t *testing.T) {
	svc := &Service{Q: newFakeQueries()}
	ids, err := svc.List(context.Background(), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, ids)
	require.Empty(t, ids)
}

func TestMergeIsSetUnion(t *testing.T) {
	q := newFakeQueries()
	svc := &Service{Q: q}
	userID := uuid.New()

	require.NoError(t, svc.Add(context.Background(), userID, "sku-1"))

	ids, err := svc.Merge(context.Background(), userID, []string{"sku-2", "sku-1", "sku-2", " ", "sku-3"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"sku-1", "sku-2", "sku-3"}, ids)

	// Merging the same list again changes nothing.
	ids, err = svc.Merge(context.Background(), userID, []string{"sku-1", "sku-2", "sku-3"})
	require.NoError(t, err)
	require.Len(t, ids, 3)
}
