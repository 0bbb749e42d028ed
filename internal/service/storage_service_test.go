package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	"worksheet_backend/internal/config"
	"worksheet_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	svc := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: root}})
	assert.Equal(t, util.StorageLocal, svc.Backend())

	key := ArchiveKey("ws-1", time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, "worksheets/2025/03/07/ws-1.json", key)

	url, err := svc.UploadJSON(context.Background(), key, []byte(`{"id":"ws-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/worksheets/2025/03/07/ws-1.json", url)

	data, err := os.ReadFile(filepath.Join(root, "worksheets", "2025", "03", "07", "ws-1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"ws-1"}`, string(data))

	// 不留下临时文件
	entries, err := os.ReadDir(filepath.Join(root, "worksheets", "2025", "03", "07"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, svc.Delete(context.Background(), key))
	assert.NoFileExists(t, filepath.Join(root, "worksheets", "2025", "03", "07", "ws-1.json"))
	assert.NoError(t, svc.Delete(context.Background(), key))
}

func TestLocalStoreKeepsKeysInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := &LocalStore{Root: filepath.Join(root, "uploads")}

	url, err := store.Put(context.Background(), "../../escape.json", []byte("{}"), util.MimeJSON)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/escape.json", url)
	assert.FileExists(t, filepath.Join(root, "uploads", "escape.json"))

	_, err = store.Put(context.Background(), "..", []byte("{}"), util.MimeJSON)
	assert.ErrorIs(t, err, ErrInvalidObjectKey)
}
