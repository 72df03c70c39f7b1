package filestorage

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupFileStorageService(t *testing.T) (*FileStorageService, string) {
	root := t.TempDir()
	fsService, err := newFileStorageService(root, zap.NewNop())
	require.NoError(t, err, "Failed to create FileStorageService")
	return fsService, root
}

// newTestFileHeader builds a multipart.FileHeader the way gin would parse it.
func newTestFileHeader(t *testing.T, fieldname, filename, content, contentType string) *multipart.FileHeader {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldname, filename))
	if contentType != "" {
		partHeader.Set("Content-Type", contentType)
	}

	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)

	files := form.File[fieldname]
	require.NotEmpty(t, files, "No files found for fieldname %s", fieldname)
	return files[0]
}

func TestSaveImage_SluggedName(t *testing.T) {
	fsService, root := setupFileStorageService(t)
	fh := newTestFileHeader(t, "images", "IMG_0001.JPG", "jpeg bytes", "image/jpeg")

	relativePath, err := fsService.SaveImage(fh, "listings/abc", "Vintage Fender Guitar!")

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^listings/abc/vintage-fender-guitar-[0-9a-f]{8}\.jpg$`), relativePath)

	content, err := os.ReadFile(filepath.Join(root, relativePath))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(content))
}

func TestSaveImage_ExtensionFromContentType(t *testing.T) {
	fsService, _ := setupFileStorageService(t)
	fh := newTestFileHeader(t, "images", "blob", "png bytes", "image/png")

	relativePath, err := fsService.SaveImage(fh, "listings", "")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(relativePath, "listings/image-"))
	assert.True(t, strings.HasSuffix(relativePath, ".png"))
}

func TestSaveImage_Rejects(t *testing.T) {
	fsService, _ := setupFileStorageService(t)

	_, err := fsService.SaveImage(newTestFileHeader(t, "images", "notes.txt", "text", "text/plain"), "listings", "notes")
	assert.ErrorContains(t, err, "unsupported file type")

	_, err = fsService.SaveImage(newTestFileHeader(t, "images", "a.png", "png", "image/png"), "../outside", "a")
	assert.ErrorContains(t, err, "invalid subDir")

	_, err = fsService.SaveImage(nil, "listings", "a")
	assert.EqualError(t, err, "fileHeader cannot be nil")
}

func TestDeleteFile(t *testing.T) {
	fsService, root := setupFileStorageService(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "listings"), os.ModePerm))
	target := filepath.Join(root, "listings", "old.jpg")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	require.NoError(t, fsService.DeleteFile("listings/old.jpg"))
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, fsService.DeleteFile("listings/old.jpg"), "missing files are ignored")
	assert.ErrorContains(t, fsService.DeleteFile("../../etc/passwd"), "invalid file path")
}
