package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialogue-backend/internal/middleware"
	"dialogue-backend/internal/models"
	"dialogue-backend/internal/worker"
)

func newTestHub(t *testing.T) (*Hub, *middleware.JWTAuth, *miniredis.Miniredis, *redis.Client, *httptest.Server) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	auth := middleware.NewJWTAuth("ws-secret")
	hub := NewHub(rdb, auth, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, auth, mr, rdb, srv
}

func TestHub_RejectsMissingOrBadToken(t *testing.T) {
	_, _, _, _, srv := newTestHub(t)

	for _, query := range []string{"", "?token=garbage"} {
		resp, err := http.Get(srv.URL + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestHub_ForwardsUserEvents(t *testing.T) {
	_, auth, mr, rdb, srv := newTestHub(t)
	userID := uuid.New()
	token, err := auth.GenerateAccessToken(userID, "alice", nil, time.Hour)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	channel := worker.UserChannel(userID)
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(channel)[channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	publisher := worker.NewRedisPublisher(rdb, slog.New(slog.NewTextHandler(io.Discard, nil)))
	publisher.Publish(context.Background(), userID, models.WSMessage{
		Type:    worker.EventDialogueCompleted,
		Payload: models.DialogueCompletedEvent{DialogueID: 42, Status: models.StatusCompleted},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string                        `json:"type"`
		Payload models.DialogueCompletedEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, worker.EventDialogueCompleted, msg.Type)
	assert.Equal(t, int64(42), msg.Payload.DialogueID)
}
