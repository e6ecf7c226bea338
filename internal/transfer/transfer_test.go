package transfer

import (
	"context"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigpull/sigpull/internal/device"
)

const testToken = "tok-transfer"

func record(id, downloadPath string, size int64) device.FileResource {
	return device.FileResource{
		ID:           id,
		ETag:         "etag-" + id,
		DownloadPath: downloadPath,
		FileSize:     size,
		MimeType:     "application/octet-stream",
		Created:      time.Now(),
		Modified:     time.Now(),
		Completed:    true,
	}
}

// newFileServer serves the given payloads by path, checking the access token
// on every request.
func newFileServer(t *testing.T, payloads map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, testToken, r.URL.Query().Get("access_token"))
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collect(seq iter.Seq2[device.FileResource, error]) ([]device.FileResource, error) {
	var out []device.FileResource
	for f, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
	return out, nil
}

func TestDownloadAllYieldsEveryFile(t *testing.T) {
	payloads := map[string][]byte{
		"/media/a.bin": []byte("alpha"),
		"/media/b.bin": []byte("bravo"),
		"/media/c.bin": []byte("charlie"),
	}
	srv := newFileServer(t, payloads)
	outDir := t.TempDir()

	files := []device.FileResource{
		record("a", "/media/a.bin", 5),
		record("b", "/media/b.bin", 5),
		record("c", "/media/c.bin", 7),
	}

	got, err := collect(DownloadAll(context.Background(), resty.New(), srv.URL, testToken, files, outDir))
	require.NoError(t, err)
	require.Len(t, got, 3)

	seen := map[string]bool{}
	for _, f := range got {
		seen[f.ID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, seen)

	for path, want := range payloads {
		data, err := os.ReadFile(filepath.Join(outDir, filepath.Base(path)))
		require.NoError(t, err)
		assert.Equal(t, want, data)
	}
}

func TestDownloadAllCompletionOrder(t *testing.T) {
	slowGate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slow.bin":
			<-slowGate
			_, _ = w.Write([]byte("slow"))
		case "/fast.bin":
			_, _ = w.Write([]byte("fast"))
		}
	}))
	t.Cleanup(srv.Close)

	files := []device.FileResource{
		record("slow", "/slow.bin", 4),
		record("fast", "/fast.bin", 4),
	}

	next, stop := iter.Pull2(DownloadAll(context.Background(), resty.New(), srv.URL, testToken, files, t.TempDir()))
	defer stop()

	// slow is still blocked on the gate, so the first yield can only be
	// fast even though it was submitted second.
	f, err, ok := next()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "fast", f.ID)

	close(slowGate)
	f, err, ok = next()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "slow", f.ID)

	_, _, ok = next()
	assert.False(t, ok)
}

func TestDownloadAllAbortsOnFailure(t *testing.T) {
	goodGate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bad.bin":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			<-goodGate
			_, _ = w.Write([]byte("ok"))
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(goodGate) })

	files := []device.FileResource{
		record("good", "/good.bin", 2),
		record("bad", "/bad.bin", 0),
	}

	got, err := collect(DownloadAll(context.Background(), resty.New(), srv.URL, testToken, files, t.TempDir()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/bad.bin")
	// The failure ends the sequence; nothing after it is yielded.
	assert.Empty(t, got)
}

func TestDownloadAllBasenameCollision(t *testing.T) {
	xGate := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/x/data.bin":
			<-xGate
			_, _ = w.Write([]byte("from-x"))
		case "/y/data.bin":
			_, _ = w.Write([]byte("from-y"))
		}
	}))
	t.Cleanup(srv.Close)
	outDir := t.TempDir()

	files := []device.FileResource{
		record("x", "/x/data.bin", 6),
		record("y", "/y/data.bin", 6),
	}

	next, stop := iter.Pull2(DownloadAll(context.Background(), resty.New(), srv.URL, testToken, files, outDir))
	defer stop()

	f, err, ok := next()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "y", f.ID)

	close(xGate)
	f, err, ok = next()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "x", f.ID)

	// Both records map to the same local name; the later completion wins.
	data, err := os.ReadFile(filepath.Join(outDir, "data.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from-x"), data)
}

func TestDownloadAllEmptyInput(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "nested", "out")

	got, err := collect(DownloadAll(context.Background(), resty.New(), "http://127.0.0.1:1", testToken, nil, outDir))
	require.NoError(t, err)
	assert.Empty(t, got)

	// Directory creation is the only side effect.
	info, err := os.Stat(outDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDownloadAllExistingDirectory(t *testing.T) {
	srv := newFileServer(t, map[string][]byte{"/a.bin": []byte("aa")})
	outDir := t.TempDir()
	files := []device.FileResource{record("a", "/a.bin", 2)}

	for i := 0; i < 2; i++ {
		got, err := collect(DownloadAll(context.Background(), resty.New(), srv.URL, testToken, files, outDir))
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
}

func TestDownloadAllAbandonedIteration(t *testing.T) {
	payloads := map[string][]byte{
		"/a.bin": []byte("aa"),
		"/b.bin": []byte("bb"),
		"/c.bin": []byte("cc"),
	}
	srv := newFileServer(t, payloads)
	outDir := t.TempDir()

	files := []device.FileResource{
		record("a", "/a.bin", 2),
		record("b", "/b.bin", 2),
		record("c", "/c.bin", 2),
	}

	for range DownloadAll(context.Background(), resty.New(), srv.URL, testToken, files, outDir) {
		break // abandon after the first completed file
	}

	// Outstanding downloads still run to completion; their results are
	// simply discarded.
	require.Eventually(t, func() bool {
		for path := range payloads {
			if _, err := os.Stat(filepath.Join(outDir, filepath.Base(path))); err != nil {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDownloadAllExampleScenario(t *testing.T) {
	payload := []byte("0123456789")

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"` + testToken + `"}`))
	})
	mux.HandleFunc("/files/find", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"items": [{
				"fileSize": 10,
				"id": "f1",
				"etag": "e",
				"downloadPath": "/a.bin",
				"createdDate": "2024-01-01T00:00:00Z",
				"transferredSize": 10,
				"modifiedDate": "2024-01-01T00:00:00Z",
				"mimeType": "application/octet-stream",
				"completed": true
			}],
			"nextPageToken": 0
		}`))
	})
	mux.HandleFunc("/a.bin", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sess, err := device.NewSession("ignored", device.WithBaseURL(srv.URL))
	require.NoError(t, err)
	require.NoError(t, sess.Authenticate(context.Background()))

	page, err := sess.FindFiles(context.Background(), device.DefaultMaxResults, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "/a.bin", page.Items[0].DownloadPath)

	outDir := t.TempDir()
	got, err := collect(ForSession(context.Background(), sess, page.Items, outDir))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].ID)

	data, err := os.ReadFile(filepath.Join(outDir, "a.bin"))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}
