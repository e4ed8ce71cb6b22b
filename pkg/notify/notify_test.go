package notify

import (
	"algoexec/config"
	"algoexec/pkg/types"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_PostsToConnection(t *testing.T) {
	received := make(chan Message, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg Message
		if err := json.Unmarshal(body, &msg); err == nil {
			received <- msg
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(&config.NotificationConfig{AllowedCallbackUrls: []string{srv.URL}})
	n.Notify(Connection{Id: "ws-1", CallbackUrl: srv.URL}, "gid-1", types.NotifySuccess, "order submitted")

	select {
	case msg := <-received:
		assert.Equal(t, "ws-1", msg.ConnectionId)
		assert.Equal(t, "gid-1", msg.Gid)
		assert.Equal(t, types.NotifySuccess, msg.Level)
		assert.Equal(t, "order submitted", msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotify_FallsBackToDefault(t *testing.T) {
	received := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
	}))
	defer srv.Close()

	n := New(&config.NotificationConfig{CallbackUrl: srv.URL})
	n.Notify(Connection{Id: "api"}, "gid-2", types.NotifyInfo, "hello")

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotify_FailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(&config.NotificationConfig{AllowedCallbackUrls: []string{srv.URL, "http://127.0.0.1:1"}})
	require.NotPanics(t, func() {
		n.Notify(Connection{Id: "x", CallbackUrl: srv.URL}, "gid-3", types.NotifyError, "boom")
		n.Notify(Connection{Id: "y", CallbackUrl: "http://127.0.0.1:1"}, "gid-3", types.NotifyError, "boom")
		n.Notify(Connection{Id: "z"}, "gid-3", types.NotifyWarning, "no observer")
	})
}

func TestNotify_CallbackOutsideAllowlist(t *testing.T) {
	var foreign, fallback int32
	foreignSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&foreign, 1)
	}))
	defer foreignSrv.Close()
	defaultSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		atomic.AddInt32(&fallback, 1)
	}))
	defer defaultSrv.Close()

	t.Setenv("NOTIFY_TEST_TOKEN", "secret")
	n := New(&config.NotificationConfig{
		CallbackUrl:         defaultSrv.URL,
		TokenEnv:            "NOTIFY_TEST_TOKEN",
		AllowedCallbackUrls: []string{"https://hooks.example.com/"},
	})
	assert.True(t, n.CallbackAllowed(""))
	assert.True(t, n.CallbackAllowed("https://hooks.example.com/algo"))
	assert.False(t, n.CallbackAllowed(foreignSrv.URL))

	n.Notify(Connection{Id: "ws-9", CallbackUrl: foreignSrv.URL}, "gid-9", types.NotifyInfo, "hello")

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fallback) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&foreign))
}
