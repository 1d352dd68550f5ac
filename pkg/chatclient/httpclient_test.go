package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealersense/chat-api/pkg/protocol"
)

func TestHTTPClient(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":"Wrong credentials.","error":"email or password is incorrect"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok","user":{"id":7,"role":"dealer","location":"Pune"}}`))
	})
	mux.HandleFunc("/api/v1/chat/7-9", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"a","roomId":"7-9","senderId":"7","receiverId":"9","message":"hi","createdAt":"2024-05-01T00:00:00Z"}]`))
	})
	mux.HandleFunc("/api/v1/chat/send", func(w http.ResponseWriter, r *http.Request) {
		var in protocol.SendMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(protocol.Message{ID: "m1", RoomID: in.RoomID, Message: in.Message})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient(srv.URL + "/api/v1/")
	ctx := context.Background()

	_, err := c.Login(ctx, "asha@dealer.example", "wrong")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "email or password is incorrect", apiErr.Message)

	user, err := c.Login(ctx, "asha@dealer.example", "secret123")
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, "tok", c.Token())

	history, err := c.History(ctx, "7-9")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "a", history[0].ID)

	stored, err := c.SendHTTP(ctx, protocol.SendMessage{RoomID: "7-9", SenderID: "7", ReceiverID: "9", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "m1", stored.ID)
}
