package catalog_test

import (
	"errors"
	"io"
	"testing"

	"ms-booking/internal/audit"
	"ms-booking/internal/catalog"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededStore(t *testing.T) (*catalog.Store, *audit.Log) {
	t.Helper()
	log := audit.NewLog(logger.NewWithWriter(io.Discard), nil)
	store := catalog.NewStore(log)
	seed, err := catalog.DefaultSeed()
	require.NoError(t, err)
	store.Load(seed)
	return store, log
}

func TestDefaultSeed(t *testing.T) {
	seed, err := catalog.DefaultSeed()
	require.NoError(t, err)

	require.Len(t, seed.Services, 2)
	assert.Len(t, seed.Categories, 3)
	require.Len(t, seed.Coupons, 1)
	assert.Equal(t, "BREIZH10", seed.Coupons[0].Code)
	assert.True(t, seed.Coupons[0].Value.Equal(decimal.NewFromInt(10)))

	s1 := seed.Services[0]
	assert.Equal(t, "s1", s1.ID)
	assert.True(t, s1.BasePrice.Equal(decimal.NewFromInt(89)))
	v2, ok := s1.Variant("v2")
	require.True(t, ok)
	assert.True(t, v2.Price.Equal(decimal.NewFromInt(40)))
	o1, ok := s1.Option("o1")
	require.True(t, ok)
	assert.True(t, o1.Price.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, models.BadgePopular, s1.Badge)
}

func TestParseSeed_Invalid(t *testing.T) {
	_, err := catalog.ParseSeed([]byte("services: [unterminated"))
	assert.Error(t, err)
}

func TestList_FilterAndSort(t *testing.T) {
	store, _ := newSeededStore(t)

	all := store.List(catalog.Filter{})
	assert.Len(t, all, 2)

	electric := store.List(catalog.Filter{CategoryID: "2"})
	require.Len(t, electric, 1)
	assert.Equal(t, "s2", electric[0].ID)

	assert.Len(t, store.List(catalog.Filter{CategoryID: "all"}), 2)

	found := store.List(catalog.Filter{Search: "ROBINET"})
	require.Len(t, found, 1)
	assert.Equal(t, "s1", found[0].ID)

	desc := store.List(catalog.Filter{Sort: catalog.SortDesc})
	assert.Equal(t, "s2", desc[0].ID)
	asc := store.List(catalog.Filter{Sort: catalog.SortAsc})
	assert.Equal(t, "s1", asc[0].ID)
}

func TestCRUD_IsAudited(t *testing.T) {
	store, log := newSeededStore(t)

	svc := models.Service{
		ID:         "s3",
		Name:       "Pose de prises",
		CategoryID: "2",
		BasePrice:  decimal.NewFromInt(59),
		Active:     false,
	}
	_, err := store.Add("Admin", svc)
	require.NoError(t, err)
	assert.Len(t, store.List(catalog.Filter{ActiveOnly: true}), 2)

	svc.Active = true
	_, err = store.Update("Admin", "s3", svc)
	require.NoError(t, err)
	got, err := store.GetActive("s3")
	require.NoError(t, err)
	assert.Equal(t, "Pose de prises", got.Name)

	require.NoError(t, store.Delete("Admin", "s3"))
	_, err = store.Get("s3")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	entries := log.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, models.SeverityWarning, entries[0].Severity)
	for _, e := range entries {
		assert.Equal(t, models.ActionInventory, e.Action)
		assert.Equal(t, "Admin", e.User)
	}
}

func TestAdd_Rejects(t *testing.T) {
	store, log := newSeededStore(t)

	_, err := store.Add("Admin", models.Service{ID: "s1", Name: "dup"})
	assert.True(t, errors.Is(err, models.ErrInvalidSelection))

	_, err = store.Add("Admin", models.Service{ID: "s9", Name: "neg", BasePrice: decimal.NewFromInt(-1)})
	assert.True(t, errors.Is(err, models.ErrInvalidSelection))

	_, err = store.Add("Admin", models.Service{
		ID:       "s9",
		Name:     "dup variants",
		Variants: []models.Variant{{ID: "v1"}, {ID: "v1"}},
	})
	assert.True(t, errors.Is(err, models.ErrInvalidSelection))

	assert.Equal(t, 0, log.Len())
}

func TestGetActive_Inactive(t *testing.T) {
	store, _ := newSeededStore(t)
	_, err := store.Add("Admin", models.Service{ID: "s4", Name: "off"})
	require.NoError(t, err)

	_, err = store.GetActive("s4")
	assert.True(t, errors.Is(err, models.ErrInvalidSelection))
}

func TestGet_ReturnsCopy(t *testing.T) {
	store, _ := newSeededStore(t)

	svc, err := store.Get("s1")
	require.NoError(t, err)
	svc.Options[0].Price = decimal.NewFromInt(1)

	again, err := store.Get("s1")
	require.NoError(t, err)
	assert.True(t, again.Options[0].Price.Equal(decimal.NewFromInt(120)))
}
