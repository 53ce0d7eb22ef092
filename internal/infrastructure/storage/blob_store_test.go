package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/benefits-portal/internal/application/port"
)

func TestLocalBlobStore_PutGetDelete(t *testing.T) {
	tempDir := t.TempDir()
	logger, _ := zap.NewDevelopment()
	store := NewLocalBlobStore(tempDir, logger)
	ctx := context.Background()

	id, err := store.Put(ctx, []byte("scan of id card"))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(tempDir, id[:2], id))

	content, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("scan of id card"), content)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, port.ErrNotFound)

	t.Run("deleting twice is fine", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, id))
	})
}

func TestLocalBlobStore_DistinctIDs(t *testing.T) {
	store := NewLocalBlobStore(t.TempDir(), zap.NewNop())

	a, err := store.Put(context.Background(), []byte("same"))
	require.NoError(t, err)
	b, err := store.Put(context.Background(), []byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestLocalBlobStore_RejectsForeignIDs(t *testing.T) {
	tempDir := t.TempDir()
	store := NewLocalBlobStore(filepath.Join(tempDir, "blobs"), zap.NewNop())
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "secret.txt"), []byte("x"), 0644))

	for _, id := range []string{"../secret.txt", "", "not-a-uuid", strings.Repeat("a", 36)} {
		_, err := store.Get(context.Background(), id)
		assert.ErrorIs(t, err, port.ErrNotFound, id)
	}
}

func TestMimeSniffer(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", MimeSniffer{}.Detect(png))

	pdf := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	assert.Equal(t, "application/pdf", MimeSniffer{}.Detect(pdf))

	assert.Equal(t, "application/octet-stream", MimeSniffer{}.Detect([]byte{0x00, 0x01, 0x02}))
}
