package service

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/model"
)

const pngHeader = "\x89PNG\r\n\x1a\n"

// uploadedFile builds a multipart file the way gin hands it to handlers.
func uploadedFile(t *testing.T, contentType string, body []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	t.Cleanup(func() { file.Close() })
	return file, header
}

func TestSaveUploadKeepsRequestedName(t *testing.T) {
	dir := t.TempDir()
	svc := NewMediaService(&config.Config{UploadDir: dir, MaxUploadBytes: 1024})

	file, header := uploadedFile(t, "image/png", []byte(pngHeader+"cart"))
	name, err := svc.SaveUpload(file, header, "cart.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "cart.png", name)

	data, err := os.ReadFile(filepath.Join(dir, "cart.png"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader+"cart", string(data))
}

func TestSaveUploadRejects(t *testing.T) {
	svc := NewMediaService(&config.Config{UploadDir: t.TempDir(), MaxUploadBytes: 4})

	file, header := uploadedFile(t, "text/plain", []byte("hi"))
	_, err := svc.SaveUpload(file, header, "")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)

	file, header = uploadedFile(t, "image/png", []byte("too large"))
	_, err = svc.SaveUpload(file, header, "")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	file, header = uploadedFile(t, "image/png", []byte("ok"))
	_, err = svc.SaveUpload(file, header, "../escape")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestSaveUploadChecksContent(t *testing.T) {
	svc := NewMediaService(&config.Config{UploadDir: t.TempDir(), MaxUploadBytes: 1024})

	file, header := uploadedFile(t, "image/png", []byte("<html>not an image</html>"))
	_, err := svc.SaveUpload(file, header, "cart")
	assert.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestMissingImages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.png"), []byte("x"), 0o644))
	svc := NewMediaService(&config.Config{UploadDir: dir})

	set := &config.QuestionSet{Questions: []model.QuestionConfig{
		{ImageFilename: "present.png"},
		{ImageFilename: "absent.png"},
		{ImageFilename: "absent.png"},
		{},
	}}
	assert.Equal(t, []string{"absent.png"}, svc.MissingImages(set))
}
