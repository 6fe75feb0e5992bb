package session

import (
	"context"
	"errors"
	"fishdisease-service/service/diagnosis"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c := &Checklist{
		ID:        "a",
		Selected:  []string{"G01"},
		Results:   []diagnosis.Result{{Code: "P01", MatchedSymptoms: []string{"G01"}}},
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, store.Save(ctx, c))
	c.Selected[0] = "MUTATED"

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"G01"}, got.Selected)

	got.Results[0].MatchedSymptoms[0] = "MUTATED"
	again, _ := store.Get(ctx, "a")
	assert.Equal(t, "G01", again.Results[0].MatchedSymptoms[0])
}

func TestMemoryStore_ExpiryAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, &Checklist{ID: "old", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, store.Save(ctx, &Checklist{ID: "new", ExpiresAt: now.Add(time.Minute)}))

	_, err := store.Get(ctx, "old")
	assert.True(t, errors.Is(err, ErrNotFound))

	removed, err := store.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, removed)
	assert.Equal(t, 1, store.Len())

	assert.NoError(t, store.Delete(ctx, "new"))
	assert.True(t, errors.Is(store.Delete(ctx, "new"), ErrNotFound))
}

func TestChecklist_Toggle(t *testing.T) {
	c := &Checklist{Selected: []string{"G01", "G02", "G03"}}

	assert.False(t, c.toggle("G02"))
	assert.Equal(t, []string{"G01", "G03"}, c.Selected)
	assert.True(t, c.toggle("G04"))
	assert.Equal(t, []string{"G01", "G03", "G04"}, c.Selected)
	assert.True(t, c.IsSelected("G04"))
	assert.False(t, c.IsSelected("G02"))
}
