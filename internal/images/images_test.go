package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/cardleads/internal/config"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	mimeType, ext, err := Sniff(tinyPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, ".png", ext)

	_, _, err = Sniff([]byte("%PDF-1.4 not a card"))
	assert.True(t, errors.Is(err, ErrNotImage))
}

func TestLocalStore_RoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	data := tinyPNG(t)

	path, err := store.Put(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "cards/"))
	assert.True(t, strings.HasSuffix(path, ".png"))

	got, err := store.Fetch(context.Background(), "/"+path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalStore_Errors(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), []byte("hello"))
	assert.True(t, errors.Is(err, ErrNotImage))

	_, err = store.Fetch(context.Background(), "cards/missing.png")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = store.Fetch(context.Background(), "../etc/passwd")
	assert.Error(t, err)
}

func TestRemoteStore_PublicURL(t *testing.T) {
	s := NewRemoteStore("https://proj.supabase.co/", "card-images", "")
	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/card-images/u1/card.jpg",
		s.PublicURL("/u1/card.jpg"))
}

func TestRemoteStore_FetchPublic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/storage/v1/object/public/card-images/cards/a.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()
	s := NewRemoteStore(srv.URL, "card-images", "")

	data, err := s.Fetch(context.Background(), "cards/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	_, err = s.Fetch(context.Background(), "cards/b.png")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemoteStore_PutWithServiceKey(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	s := NewRemoteStore(srv.URL, "card-images", "service")
	data := tinyPNG(t)

	path, err := s.Put(context.Background(), data)

	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/card-images/"+path, gotPath)
	assert.Equal(t, "Bearer service", gotAuth)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, data, gotBody)
}

func TestRemoteStore_PutNeedsKey(t *testing.T) {
	_, err := NewRemoteStore("http://x", "b", "").Put(context.Background(), tinyPNG(t))
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(config.ImagesConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	s, err = NewStore(config.ImagesConfig{PublicBaseURL: "https://proj.supabase.co", Bucket: "card-images"})
	require.NoError(t, err)
	assert.IsType(t, &RemoteStore{}, s)
}
