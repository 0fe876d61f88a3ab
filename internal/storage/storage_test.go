package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/config"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLocalStorePutAndURL(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "http://cdn.local/uploads/")
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "media", "products/a.txt", "text/plain", []byte("hi")))

	data, err := os.ReadFile(filepath.Join(root, "media", "products", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
	assert.Equal(t, "http://cdn.local/uploads/media/products/a.txt", store.URL("media", "products/a.txt"))
}

func TestLocalStoreKeepsWritesInsideRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "http://cdn.local")
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), "", "../../escape.txt", "text/plain", []byte("x")))
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.NoError(t, err)
}

func TestNewBlobStoreSelectsDriver(t *testing.T) {
	store, err := NewBlobStore(context.Background(), config.StorageConfig{Driver: "local", LocalRoot: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = NewBlobStore(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}

func TestUploaderStoresOriginalAndDerivatives(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "http://cdn.local")
	require.NoError(t, err)

	uploader := NewUploader(store, map[Kind]UploadRule{
		KindProductImage: {Bucket: "media", PathPrefix: "products", DerivativeSizes: []int{8, 16}},
	})

	up, err := uploader.Upload(context.Background(), KindProductImage, "Mug.PNG", pngBytes(t, 32, 32))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.URL, "http://cdn.local/media/products/"))
	assert.True(t, strings.HasSuffix(up.URL, ".png"))
	require.Len(t, up.Derivatives, 2)
	assert.True(t, strings.HasSuffix(up.Derivatives[16], "_w16.jpg"))

	entries, err := os.ReadDir(filepath.Join(root, "media", "products"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestUploaderRejectsUnknownKindAndBadBytes(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://cdn.local")
	require.NoError(t, err)
	uploader := NewUploader(store, nil)

	_, err = uploader.Upload(context.Background(), Kind("avatar"), "a.png", pngBytes(t, 4, 4))
	assert.Error(t, err)

	_, err = uploader.Upload(context.Background(), KindProductImage, "a.png", []byte("not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
