package background

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ds124wfegd/newscover/internal/entity"
	"github.com/ds124wfegd/newscover/internal/pkg/assets"
	"github.com/ds124wfegd/newscover/internal/pkg/storage"
)

func TestResolveRemote(t *testing.T) {
	body := encodePNG(t, 30, 20)

	tests := []struct {
		name     string
		status   int
		body     []byte
		wantKind entity.Kind
		wantMsg  string
		wantErr  bool
	}{
		{name: "ok", status: http.StatusOK, body: body},
		{name: "not found", status: http.StatusNotFound, wantErr: true, wantKind: entity.KindBadStatus, wantMsg: "Bad response: 404"},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true, wantKind: entity.KindBadStatus, wantMsg: "Bad response: 500"},
		{name: "not an image", status: http.StatusOK, body: []byte("<html></html>"), wantErr: true, wantKind: entity.KindUnexpected, wantMsg: msgDecodeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write(tt.body)
			}))
			defer srv.Close()

			cacheDir := filepath.Join(t.TempDir(), "Download")
			r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(cacheDir), time.Second, false)

			img, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundRemote, Value: srv.URL + "/cover.png"})

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, entity.KindOf(err))
				assert.Equal(t, tt.wantMsg, err.Error())
				assert.Nil(t, img)
			} else {
				require.NoError(t, err)
				assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())
			}
			assert.Zero(t, countFiles(t, cacheDir), "scratch files must not outlive the call")
		})
	}
}

func TestResolveRemoteNetworkErrors(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name string
		url  string
	}{
		{name: "connection refused", url: closedURL + "/x.png"},
		{name: "bad scheme", url: "ftp://example.com/x.png"},
		{name: "not a url", url: "not a url"},
		{name: "missing host", url: "http:///x.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(t.TempDir()), time.Second, false)

			_, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundRemote, Value: tt.url})

			require.Error(t, err)
			assert.Equal(t, entity.KindNetwork, entity.KindOf(err))
			assert.Equal(t, msgDownloadFailed, err.Error())
		})
	}
}

func TestResolveRemoteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(t.TempDir()), 50*time.Millisecond, false)

	_, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundRemote, Value: srv.URL})

	require.Error(t, err)
	assert.Equal(t, entity.KindNetwork, entity.KindOf(err))
}

func TestResolveRemoteBlocksPrivateNetworks(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(t.TempDir()), time.Second, true)

	_, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundRemote, Value: srv.URL})

	require.Error(t, err)
	assert.Equal(t, entity.KindNetwork, entity.KindOf(err))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestResolveRemoteDialGuard(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(t.TempDir()), time.Second, true).(*resolver)

	// the client itself refuses the connection even when the URL check is skipped
	resp, err := r.client.Get(srv.URL)
	if resp != nil {
		resp.Body.Close()
	}

	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestResolveRemoteRedirects(t *testing.T) {
	var hops int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/scheme":
			http.Redirect(w, r, "ftp://example.com/x.png", http.StatusFound)
		case "/loop":
			atomic.AddInt32(&hops, 1)
			http.Redirect(w, r, "/loop", http.StatusFound)
		}
	}))
	defer srv.Close()

	r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(t.TempDir()), time.Second, false)

	for _, path := range []string{"/scheme", "/loop"} {
		t.Run(path, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundRemote, Value: srv.URL + path})

			require.Error(t, err)
			assert.Equal(t, entity.KindNetwork, entity.KindOf(err))
		})
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&hops), int32(maxRedirects))
}

func TestCheckRedirectBlocksPrivateTargets(t *testing.T) {
	r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(t.TempDir()), time.Second, true).(*resolver)

	tests := []struct {
		target  string
		wantErr bool
	}{
		{target: "http://169.254.169.254/latest/meta-data/", wantErr: true},
		{target: "http://127.0.0.1:8080/admin", wantErr: true},
		{target: "http://10.0.0.5/x.png", wantErr: true},
		{target: "http://8.8.8.8/x.png", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			err := r.checkRedirect(req, []*http.Request{req})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDialControl(t *testing.T) {
	tests := []struct {
		address string
		wantErr bool
	}{
		{address: "127.0.0.1:80", wantErr: true},
		{address: "[::1]:443", wantErr: true},
		{address: "192.168.1.1:80", wantErr: true},
		{address: "169.254.169.254:80", wantErr: true},
		{address: "8.8.8.8:443", wantErr: false},
		{address: "no-port", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			err := dialControl("tcp", tt.address, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckPublicHost(t *testing.T) {
	tests := []struct {
		host    string
		wantErr bool
	}{
		{host: "127.0.0.1", wantErr: true},
		{host: "10.1.2.3", wantErr: true},
		{host: "192.168.0.10", wantErr: true},
		{host: "169.254.169.254", wantErr: true},
		{host: "::1", wantErr: true},
		{host: "0.0.0.0", wantErr: true},
		{host: "8.8.8.8", wantErr: false},
		{host: "2001:4860:4860::8888", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := checkPublicHost(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 12, 7), 0644))
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("nope"), 0644))

	r := NewResolver(assets.NewStore(dir), storage.NewFileStorage(dir), time.Second, false)

	t.Run("existing file", func(t *testing.T) {
		img, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundLocal, Value: path})
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 12, 7), img.Bounds())
	})

	t.Run("missing file", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.png")
		_, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundLocal, Value: missing})
		require.Error(t, err)
		assert.Equal(t, entity.KindNotFound, entity.KindOf(err))
		assert.Equal(t, "Background not found: "+missing, err.Error())
	})

	t.Run("undecodable file", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundLocal, Value: broken})
		require.Error(t, err)
		assert.Equal(t, entity.KindUnexpected, entity.KindOf(err))
	})
}

func TestResolveBlank(t *testing.T) {
	t.Run("bundled blank", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, assets.Generate(dir, 24))
		r := NewResolver(assets.NewStore(dir), storage.NewFileStorage(t.TempDir()), time.Second, false)

		img, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundBlank})

		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 24, 24), img.Bounds())
	})

	t.Run("missing blank", func(t *testing.T) {
		r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(t.TempDir()), time.Second, false)

		_, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundBlank})

		require.Error(t, err)
		assert.Equal(t, entity.KindAssetNotFound, entity.KindOf(err))
		assert.Equal(t, msgBlankNotFound, err.Error())
	})
}

func TestResolveUnknownKind(t *testing.T) {
	r := NewResolver(assets.NewStore(t.TempDir()), storage.NewFileStorage(t.TempDir()), 0, false)

	_, err := r.Resolve(context.Background(), entity.Background{Kind: entity.BackgroundKind(42)})

	assert.Equal(t, entity.KindInvalidBackground, entity.KindOf(err))
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}
