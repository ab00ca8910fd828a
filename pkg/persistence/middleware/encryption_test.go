package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/aretw0/jarvis/pkg/adapters/file"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/persistence/middleware"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretCheckpoint(id string) *domain.Checkpoint {
	state := domain.NewState(domain.UserTurn("email bob my bank pin 4321"))
	return &domain.Checkpoint{
		ThreadID:  id,
		Status:    domain.CheckpointSuspended,
		Question:  "Approval needed for send_email",
		Frames:    []domain.Frame{{Graph: "jarvis", Node: "execute", State: state}},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Version:   3,
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunCheckpointStoreContract(t, mw(file.New(t.TempDir())))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := NewMockStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "t1", secretCheckpoint("t1")))

	stored, err := underlying.Load(ctx, "t1")
	require.NoError(t, err)
	raw, err := json.Marshal(stored)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "4321")
	assert.NotContains(t, string(raw), "send_email")
	assert.Empty(t, stored.Question)
	assert.Equal(t, 3, stored.Version)
	assert.Equal(t, domain.CheckpointSuspended, stored.Status)

	loaded, err := secure.Load(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, loaded.Pending())
	assert.Equal(t, "Approval needed for send_email", loaded.Question)
	assert.Equal(t, "email bob my bank pin 4321", loaded.Frames[0].State.Turns[0].Text)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := NewMockStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	secureOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, secureOld.Save(ctx, "t1", secretCheckpoint("t1")))

	secureNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := secureNew.Load(ctx, "t1")
	require.NoError(t, err, "old data opens with the fallback key")
	loaded.Version++
	require.NoError(t, secureNew.Save(ctx, "t1", loaded))

	_, err = secureOld.Load(ctx, "t1")
	assert.Error(t, err, "re-saved data is sealed with the new key only")
}

func TestEncryptionMiddleware_BoundToThread(t *testing.T) {
	underlying := NewMockStore()
	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "victim", secretCheckpoint("victim")))
	stolen, err := underlying.Load(ctx, "victim")
	require.NoError(t, err)
	require.NoError(t, underlying.Save(ctx, "attacker", stolen))

	_, err = secure.Load(ctx, "attacker")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlaintext(t *testing.T) {
	underlying := NewMockStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "t1", secretCheckpoint("t1")))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Load(ctx, "t1")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	_, err = secure.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)

	got, err := middleware.ParseKey(hex.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	got, err = middleware.ParseKey("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	assert.Len(t, got, 32)

	_, err = middleware.ParseKey("too-short")
	assert.Error(t, err)
}
