package sessionstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Conversa/internal/models"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := t.Context()

	sess := models.NewSession("sess-1", "user-1")
	sess.ConversationID = "conv_abc"
	sess.ContentIndexID = "vs_1"
	sess.StagedFiles["file_1"] = models.StagedFile{Filename: "a.csv", ContentType: "text/csv", Category: models.CategoryFileSearch}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "conv_abc", got.ConversationID)
	assert.Equal(t, "vs_1", got.ContentIndexID)
	assert.Len(t, got.StagedFiles, 1)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMemoryStoreGetMissReturnsNil(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	got, err := store.Get(t.Context(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// Mutating the value handed back by Get must not leak into the stored row,
// matching how a database row behaves.
func TestMemoryStoreCopiesOnReadAndWrite(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := t.Context()

	sess := models.NewSession("sess-1", "user-1")
	require.NoError(t, store.Save(ctx, sess))

	// Mutations after Save don't reach the store.
	sess.ConversationID = "conv_leak"
	sess.StagedFiles["file_x"] = models.StagedFile{Filename: "x"}

	first, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, first.ConversationID)
	assert.Empty(t, first.StagedFiles)

	// Mutations on a Get result don't reach the store either.
	first.ContentIndexID = "vs_leak"
	second, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, second.ContentIndexID)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := t.Context()

	require.NoError(t, store.Save(ctx, models.NewSession("sess-1", "user-1")))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore(20 * time.Millisecond)
	ctx := t.Context()

	require.NoError(t, store.Save(ctx, models.NewSession("sess-1", "user-1")))
	time.Sleep(50 * time.Millisecond)

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// Last save wins under concurrent writers; the store itself must not race.
func TestMemoryStoreConcurrentSaves(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := t.Context()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sess := models.NewSession("sess-1", "user-1")
			sess.ContentIndexID = fmt.Sprintf("vs_%02d", n)
			_ = store.Save(ctx, sess)
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Regexp(t, `^vs_\d{2}$`, got.ContentIndexID)
}
