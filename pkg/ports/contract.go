package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	threadID := "contract-test-thread-" + time.Now().Format("20060102150405")

	newCheckpoint := func(id string) *domain.Checkpoint {
		state := domain.NewState(domain.UserTurn("Log my breakfast"))
		state.IterationCount = 1
		state.Scratch["cursor"] = 2
		return &domain.Checkpoint{
			ThreadID: id,
			Status:   domain.CheckpointSuspended,
			Question: "What meal type?",
			Frames: []domain.Frame{
				{Graph: "jarvis", Node: "execute", State: state},
				{Graph: "nutrition", Node: "decide", State: domain.NewState(domain.UserTurn("2 eggs"))},
			},
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
			Version:   1,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		cp := newCheckpoint(threadID)

		err := store.Save(ctx, threadID, cp)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err, "Load should not return error")
		assert.True(t, loaded.Pending())
		assert.Equal(t, cp.Question, loaded.Question)
		require.Len(t, loaded.Frames, 2)
		assert.Equal(t, "execute", loaded.Frames[0].Node)
		assert.Equal(t, "nutrition", loaded.Frames[1].Graph)
		assert.Equal(t, "Log my breakfast", loaded.Frames[0].State.Turns[0].Text)
		// JSON backends turn ints into float64; ScratchInt tolerates both.
		cursor, ok := loaded.Frames[0].State.ScratchInt("cursor")
		assert.True(t, ok)
		assert.Equal(t, 2, cursor)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		loaded.Frames[0].State.Turns[0].Text = "mutated"

		again, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		assert.Equal(t, "Log my breakfast", again.Frames[0].State.Turns[0].Text)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+threadID)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, threadID, newCheckpoint(threadID))
		require.NoError(t, err)

		err = store.Delete(ctx, threadID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, threadID)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound, "Load after Delete should return ErrCheckpointNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := threadID + "-1"
		id2 := threadID + "-2"
		require.NoError(t, store.Save(ctx, id1, newCheckpoint(id1)))
		require.NoError(t, store.Save(ctx, id2, newCheckpoint(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		threads, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, threads, id1)
		assert.Contains(t, threads, id2)
	})
}

// RunMemoryStoreContract verifies a MemoryStore: per-user scoping, relevance
// search, newest-first listing and id prefix resolution.
func RunMemoryStoreContract(t *testing.T, store MemoryStore) {
	ctx := context.Background()

	workouts, err := store.Add(ctx, "ada", "I prefer morning workouts")
	require.NoError(t, err)
	require.NotEmpty(t, workouts.ID)
	assert.Equal(t, "ada", workouts.UserID)
	assert.False(t, workouts.CreatedAt.IsZero())

	time.Sleep(2 * time.Millisecond)
	pizza, err := store.Add(ctx, "ada", "My favorite food is pizza")
	require.NoError(t, err)
	_, err = store.Add(ctx, "bob", "Bob prefers evening workouts")
	require.NoError(t, err)

	t.Run("Search", func(t *testing.T) {
		found, err := store.Search(ctx, "ada", "workout preferences", 5)
		require.NoError(t, err)
		require.Len(t, found, 1, "other users' memories stay out")
		assert.Equal(t, workouts.ID, found[0].ID)

		found, err = store.Search(ctx, "ada", "astronomy", 5)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("List", func(t *testing.T) {
		all, err := store.List(ctx, "ada", 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, pizza.ID, all[0].ID, "newest first")

		one, err := store.List(ctx, "ada", 1)
		require.NoError(t, err)
		assert.Len(t, one, 1)

		none, err := store.List(ctx, "nobody", 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Update by short id", func(t *testing.T) {
		updated, err := store.Update(ctx, "ada", pizza.ShortID(), "My favorite food is sushi")
		require.NoError(t, err)
		assert.Equal(t, pizza.ID, updated.ID)
		assert.Equal(t, "My favorite food is sushi", updated.Text)
		assert.Equal(t, pizza.CreatedAt.Unix(), updated.CreatedAt.Unix())

		found, err := store.Search(ctx, "ada", "sushi", 5)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, pizza.ID, found[0].ID)

		found, err = store.Search(ctx, "ada", "pizza", 5)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("Other users cannot resolve ids", func(t *testing.T) {
		_, err := store.Delete(ctx, "bob", workouts.ID)
		assert.ErrorIs(t, err, domain.ErrMemoryNotFound)
		_, err = store.Update(ctx, "ada", "does-not-exist", "x")
		assert.ErrorIs(t, err, domain.ErrMemoryNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		deleted, err := store.Delete(ctx, "ada", workouts.ID)
		require.NoError(t, err)
		assert.Equal(t, "I prefer morning workouts", deleted.Text)

		found, err := store.Search(ctx, "ada", "workouts", 5)
		require.NoError(t, err)
		assert.Empty(t, found)

		all, err := store.List(ctx, "ada", 0)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}
