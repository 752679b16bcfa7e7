package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgwanai/email-mcp/internal/services"
)

func TestStorageHandler_Stats(t *testing.T) {
	fx := newFixture(t)
	h := NewStorageHandler(fx.attachments, 30*24*time.Hour)

	_, err := fx.store.Put(handlerAddr, 1, "a.txt", []byte("12345"))
	require.NoError(t, err)

	c, rec := newContext(t, http.MethodGet, "/api/storage/stats", "")
	require.NoError(t, h.Stats(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats services.StorageStats
	decodeData(t, rec, &stats)
	assert.Equal(t, 1, stats.Filesystem.Files)
	assert.Equal(t, int64(5), stats.Filesystem.TotalBytes)
}

func TestStorageHandler_Cleanup(t *testing.T) {
	fx := newFixture(t)
	h := NewStorageHandler(fx.attachments, 30*24*time.Hour)

	_, err := fx.store.Put(handlerAddr, 1, "old.txt", []byte("x"))
	require.NoError(t, err)

	old := time.Now().Add(-90 * 24 * time.Hour)
	dir := fx.store.MessageDir(handlerAddr, 1)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.txt"), old, old))
	require.NoError(t, os.Chtimes(dir, old, old))

	c, rec := newContext(t, http.MethodPost, "/api/storage/cleanup", `{"max_age_days":30}`)
	require.NoError(t, h.Cleanup(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.CleanupResult
	decodeData(t, rec, &result)
	assert.Equal(t, 1, result.RemovedDirs)
	assert.NoDirExists(t, dir)
}

func TestStorageHandler_CleanupDefaultMaxAge(t *testing.T) {
	fx := newFixture(t)
	h := NewStorageHandler(fx.attachments, 30*24*time.Hour)

	_, err := fx.store.Put(handlerAddr, 1, "fresh.txt", []byte("x"))
	require.NoError(t, err)

	// No body: the configured default applies and the fresh file survives
	c, rec := newContext(t, http.MethodPost, "/api/storage/cleanup", `{}`)
	require.NoError(t, h.Cleanup(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var result services.CleanupResult
	decodeData(t, rec, &result)
	assert.Equal(t, 0, result.RemovedDirs)
}
