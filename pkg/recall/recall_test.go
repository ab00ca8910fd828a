package recall_test

import (
	"testing"

	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/recall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memories(user string, texts ...string) []domain.Memory {
	out := make([]domain.Memory, len(texts))
	for i, text := range texts {
		out[i] = domain.Memory{ID: user + "-" + string(rune('a'+i)), UserID: user, Text: text}
	}
	return out
}

func TestIndex_SearchIsScopedAndStemmed(t *testing.T) {
	x, err := recall.New()
	require.NoError(t, err)
	defer x.Close()

	for _, m := range append(
		memories("ada", "I prefer morning workouts", "My favorite food is pizza", "I'm allergic to peanuts"),
		memories("bob", "Bob prefers evening workouts")...,
	) {
		require.NoError(t, x.Put(m))
	}

	ids, err := x.Search("ada", "workout preferences", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada-a"}, ids)

	ids, err = x.Search("ada", "quantum physics", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, x.Remove("ada-a"))
	ids, err = x.Search("ada", "workouts", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = x.Search("ada", "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestIndex_PutReplaces(t *testing.T) {
	x, err := recall.New()
	require.NoError(t, err)
	defer x.Close()

	m := domain.Memory{ID: "m1", UserID: "ada", Text: "I live in Lisbon"}
	require.NoError(t, x.Put(m))
	m.Text = "I moved to Porto"
	require.NoError(t, x.Put(m))

	ids, err := x.Search("ada", "Lisbon", 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
	ids, err = x.Search("ada", "Porto", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)
}

func TestRank(t *testing.T) {
	mems := memories("ada",
		"Dentist appointment every six months",
		"I run every morning before work",
		"Morning runs are better with coffee",
	)

	ranked, err := recall.Rank(mems, "morning running", 5)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	for _, m := range ranked {
		assert.Equal(t, "ada", m.UserID, "memories come back unchanged")
		assert.NotEqual(t, "ada-a", m.ID)
	}

	ranked, err = recall.Rank(mems, "morning", 1)
	require.NoError(t, err)
	assert.Len(t, ranked, 1)

	ranked, err = recall.Rank(nil, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}
