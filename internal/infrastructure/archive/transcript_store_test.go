package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-chat/pkg/helpers"
)

// fakeGCS accepts JSON API media uploads and remembers their bodies.
type fakeGCS struct {
	mu      sync.Mutex
	uploads []string
	fail    bool
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if f.fail {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
		return
	}
	if r.Method != http.MethodPost || !strings.Contains(r.URL.Path, "/b/chat-archive/o") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, string(body))
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"bucket":"chat-archive","name":"transcripts/c1/t.txt","size":"5"}`))
}

func newStore(t *testing.T, f *fakeGCS) *GCSTranscriptStore {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	t.Setenv("STORAGE_EMULATOR_HOST", strings.TrimPrefix(srv.URL, "http://"))

	client, err := helpers.NewGCSClient(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewGCSTranscriptStore(client, "chat-archive")
}

func TestGCSTranscriptStore_Upload(t *testing.T) {
	f := &fakeGCS{}
	store := newStore(t, f)

	url, err := store.Upload(context.Background(), "transcripts/c1/t.txt", "text/plain; charset=utf-8", strings.NewReader("[09:00] Alice: hi"))
	require.NoError(t, err)
	require.Equal(t, "https://storage.googleapis.com/chat-archive/transcripts/c1/t.txt", url)
	require.Len(t, f.uploads, 1)
	require.Contains(t, f.uploads[0], "[09:00] Alice: hi")
}

func TestGCSTranscriptStore_UploadFailure(t *testing.T) {
	store := newStore(t, &fakeGCS{fail: true})

	_, err := store.Upload(context.Background(), "transcripts/c1/t.txt", "text/plain", strings.NewReader("x"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "chat-archive/transcripts/c1/t.txt")
}
