package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgwanai/email-mcp/internal/models"
	"github.com/lgwanai/email-mcp/internal/storage"
)

const handlerAddr = "user@example.com"

func TestAttachmentHandler_List(t *testing.T) {
	fx := newFixture(t)
	h := NewAttachmentHandler(fx.attachments)

	_, err := fx.store.Put(handlerAddr, 5, "report.txt", []byte("hello"))
	require.NoError(t, err)

	c, rec := newContext(t, http.MethodGet, "/", "")
	c.SetParamNames("address", "uid")
	c.SetParamValues(handlerAddr, "5")

	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var listing storage.Listing
	decodeData(t, rec, &listing)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "report.txt", listing.Files[0].Name)
}

func TestAttachmentHandler_ListInvalidUID(t *testing.T) {
	fx := newFixture(t)
	h := NewAttachmentHandler(fx.attachments)

	c, rec := newContext(t, http.MethodGet, "/", "")
	c.SetParamNames("address", "uid")
	c.SetParamValues(handlerAddr, "abc")

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttachmentHandler_Extract(t *testing.T) {
	fx := newFixture(t)
	h := NewAttachmentHandler(fx.attachments)

	_, err := fx.store.Put(handlerAddr, 5, "bundle.zip", zipFixture(t))
	require.NoError(t, err)

	c, rec := newContext(t, http.MethodPost, "/", `{"path":"bundle.zip"}`)
	c.SetParamNames("address", "uid")
	c.SetParamValues(handlerAddr, "5")

	require.NoError(t, h.Extract(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var record models.ExtractionRecord
	decodeData(t, rec, &record)
	assert.Equal(t, "bundle_extracted", record.Destination)
	assert.Equal(t, 1, record.FileCount)
}

func TestAttachmentHandler_ExtractNotAnArchive(t *testing.T) {
	fx := newFixture(t)
	h := NewAttachmentHandler(fx.attachments)

	_, err := fx.store.Put(handlerAddr, 5, "notes.txt", []byte("plain"))
	require.NoError(t, err)

	c, rec := newContext(t, http.MethodPost, "/", `{"path":"notes.txt"}`)
	c.SetParamNames("address", "uid")
	c.SetParamValues(handlerAddr, "5")

	require.NoError(t, h.Extract(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttachmentHandler_ReadAsText(t *testing.T) {
	fx := newFixture(t)
	h := NewAttachmentHandler(fx.attachments)

	_, err := fx.store.Put(handlerAddr, 5, "mail.html",
		[]byte("<html><body><h1>Title</h1></body></html>"))
	require.NoError(t, err)

	c, rec := newContext(t, http.MethodGet, "/?path=mail.html&as_text=true", "")
	c.SetParamNames("address", "uid")
	c.SetParamValues(handlerAddr, "5")

	require.NoError(t, h.Read(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Title")
}

func TestAttachmentHandler_Download(t *testing.T) {
	fx := newFixture(t)
	h := NewAttachmentHandler(fx.attachments)

	_, err := fx.store.Put(handlerAddr, 5, "data.bin", []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	c, rec := newContext(t, http.MethodGet, "/?path=data.bin", "")
	c.SetParamNames("address", "uid")
	c.SetParamValues(handlerAddr, "5")

	require.NoError(t, h.Download(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "data.bin")
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, rec.Body.Bytes())
}

func TestAttachmentHandler_ReadMissingFile(t *testing.T) {
	fx := newFixture(t)
	h := NewAttachmentHandler(fx.attachments)

	c, rec := newContext(t, http.MethodGet, "/?path=ghost.txt", "")
	c.SetParamNames("address", "uid")
	c.SetParamValues(handlerAddr, "5")

	require.NoError(t, h.Read(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
