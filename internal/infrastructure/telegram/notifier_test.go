package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSummary(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("token123", "-1001").WithAPIBase(srv.URL)
	require.NoError(t, n.PublishSummary(context.Background(), "Fetched: 3"))

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "-1001", gotChat)
	assert.Equal(t, "Fetched: 3", gotText)
}

func TestPublishSummaryErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewNotifier("token", "chat").WithAPIBase(srv.URL).PublishSummary(context.Background(), "x")
	require.Error(t, err)

	err = NewNotifier("", "chat").PublishSummary(context.Background(), "x")
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", maxMessageRunes+10)
	out := truncate(long, maxMessageRunes)
	assert.Equal(t, maxMessageRunes, utf8.RuneCountInString(out))
	assert.Equal(t, "short", truncate("short", maxMessageRunes))
}
