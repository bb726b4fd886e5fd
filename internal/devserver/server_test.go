package devserver_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-mailbuild/internal/devserver"
)

func site(t *testing.T) (root, css string) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "dist")
	css = filepath.Join(dir, "css")
	files := map[string]string{
		filepath.Join(root, "welcome.html"):    "<html><body><p>Welcome</p></body></html>",
		filepath.Join(root, "img", "logo.png"): "png",
		filepath.Join(css, "basic.css"):        "td{padding:0}",
	}
	for p, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root, css
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Handler(t *testing.T) {
	t.Parallel()

	t.Run("injects live reload client into html", func(t *testing.T) {
		t.Parallel()

		root, css := site(t)
		h := devserver.New(devserver.Config{Root: root, CSSDir: css, LiveReload: true}).Handler()

		rec := get(t, h, "/welcome.html")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<p>Welcome</p>")
		assert.Contains(t, body, devserver.LiveReloadPath)
		assert.Less(t, strings.Index(body, "<script>"), strings.Index(body, "</body>"))
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	})

	t.Run("serves html untouched without live reload", func(t *testing.T) {
		t.Parallel()

		root, _ := site(t)
		h := devserver.New(devserver.Config{Root: root}).Handler()

		rec := get(t, h, "/welcome.html")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "<script>")

		rec = get(t, h, devserver.LiveReloadPath)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("serves images and css mount", func(t *testing.T) {
		t.Parallel()

		root, css := site(t)
		h := devserver.New(devserver.Config{Root: root, CSSDir: css, LiveReload: true}).Handler()

		rec := get(t, h, "/img/logo.png")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "png", rec.Body.String())

		rec = get(t, h, "/css/basic.css")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "td{padding:0}", rec.Body.String())
	})

	t.Run("missing page is 404", func(t *testing.T) {
		t.Parallel()

		root, _ := site(t)
		h := devserver.New(devserver.Config{Root: root, LiveReload: true}).Handler()

		assert.Equal(t, http.StatusNotFound, get(t, h, "/nope.html").Code)
	})

	t.Run("traversal stays inside root", func(t *testing.T) {
		t.Parallel()

		root, _ := site(t)
		h := devserver.New(devserver.Config{Root: root, LiveReload: true}).Handler()

		rec := get(t, h, "/../css/basic.css")
		assert.NotContains(t, rec.Body.String(), "td{padding:0}")
	})

	t.Run("directory listing at root", func(t *testing.T) {
		t.Parallel()

		root, _ := site(t)
		h := devserver.New(devserver.Config{Root: root, LiveReload: true}).Handler()

		rec := get(t, h, "/")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "welcome.html")
	})

	t.Run("responses are not cached", func(t *testing.T) {
		t.Parallel()

		root, _ := site(t)
		h := devserver.New(devserver.Config{Root: root}).Handler()

		rec := get(t, h, "/img/logo.png")
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-cache")
	})
}

func TestServer_LiveReloadStream(t *testing.T) {
	t.Parallel()

	root, _ := site(t)
	srv := devserver.New(devserver.Config{Root: root, LiveReload: true})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + devserver.LiveReloadPath)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return srv.Hub().Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	srv.Reload()

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event:") {
			break
		}
	}
	assert.Equal(t, "event: reload\n", line)
}

func TestServer_ListenAndServe(t *testing.T) {
	t.Parallel()

	t.Run("serve before listen", func(t *testing.T) {
		t.Parallel()

		srv := devserver.New(devserver.Config{Root: t.TempDir()})
		assert.ErrorIs(t, srv.Serve(context.Background()), devserver.ErrNotStarted)
		assert.Empty(t, srv.URL())
	})

	t.Run("port in use", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { _ = ln.Close() }()

		srv := devserver.New(devserver.Config{Root: t.TempDir(), Addr: ln.Addr().String()})
		assert.ErrorIs(t, srv.Listen(), devserver.ErrListen)
	})

	t.Run("shuts down with an open event stream", func(t *testing.T) {
		t.Parallel()

		root, _ := site(t)
		srv := devserver.New(devserver.Config{
			Root:            root,
			Addr:            "127.0.0.1:0",
			LiveReload:      true,
			ShutdownTimeout: 2 * time.Second,
		})
		require.NoError(t, srv.Listen())
		assert.True(t, strings.HasPrefix(srv.URL(), "http://127.0.0.1:"))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx) }()

		resp, err := http.Get(srv.URL() + devserver.LiveReloadPath)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		page, err := http.Get(srv.URL() + "/welcome.html")
		require.NoError(t, err)
		body, _ := io.ReadAll(page.Body)
		_ = page.Body.Close()
		assert.Contains(t, string(body), "Welcome")

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("Serve did not return after cancellation")
		}
	})
}
