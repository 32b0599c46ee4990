package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSenderSend(t *testing.T) {
	var gotPath string
	var gotMsg chatMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMsg))
		json.NewEncoder(w).Encode(chatResponse{OK: true})
	}))
	defer srv.Close()

	s := NewChatSender("token123", srv.URL)
	err := s.Send(context.Background(), "chat-42", "Deadline tomorrow", "Case 42 is due.")
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "chat-42", gotMsg.ChatID)
	assert.Equal(t, "Deadline tomorrow\nCase 42 is due.", gotMsg.Text)
}

func TestChatSenderNoSubject(t *testing.T) {
	var gotMsg chatMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotMsg)
		json.NewEncoder(w).Encode(chatResponse{OK: true})
	}))
	defer srv.Close()

	s := NewChatSender("token123", srv.URL)
	require.NoError(t, s.Send(context.Background(), "chat-42", "", "just the body"))
	assert.Equal(t, "just the body", gotMsg.Text)
}

func TestChatSenderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(chatResponse{OK: false, Description: "chat not found"})
	}))
	defer srv.Close()

	s := NewChatSender("token123", srv.URL)
	err := s.Send(context.Background(), "nope", "x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestChatSenderServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	s := NewChatSender("token123", srv.URL)
	assert.Error(t, s.Send(context.Background(), "chat-42", "x", "y"))
}
