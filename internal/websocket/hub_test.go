package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"english-hub-backend/internal/models"
)

type stubVerifier map[string]uuid.UUID

func (v stubVerifier) ParseUserID(token string) (uuid.UUID, error) {
	id, ok := v[token]
	if !ok {
		return uuid.Nil, errors.New("bad token")
	}
	return id, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func waitConnected(t *testing.T, h *Hub, userID uuid.UUID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.RLock()
		n := len(h.connections[userID])
		ready := h.subscribed[userID]
		h.mu.RUnlock()
		if n > 0 {
			if ready != nil {
				select {
				case <-ready:
				case <-time.After(time.Until(deadline)):
					t.Fatalf("subscription for %s never confirmed", userID)
				}
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("connection for %s never registered", userID)
}

func readMessage(t *testing.T, conn *websocket.Conn) models.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHub_RejectsBadToken(t *testing.T) {
	h := NewHub(nil, stubVerifier{})
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	_, resp, err := dial(t, srv, "nope")
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestHub_DirectPublish(t *testing.T) {
	user := uuid.New()
	h := NewHub(nil, stubVerifier{"tok": user})
	defer h.Close()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitConnected(t, h, user)

	h.Publish(context.Background(), user, models.WSMessage{Type: models.WSPracticeUpdated, Payload: map[string]int{"cursor": 1}})
	if msg := readMessage(t, conn); msg.Type != models.WSPracticeUpdated {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestHub_ForwardsRedisChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	user := uuid.New()
	h := NewHub(rdb, stubVerifier{"tok": user})
	defer h.Close()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "tok")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitConnected(t, h, user)

	data, _ := json.Marshal(models.WSMessage{Type: models.WSReviewEnded})
	if err := rdb.Publish(context.Background(), models.SessionUpdatesChannel(user), data).Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != models.WSReviewEnded {
		t.Fatalf("unexpected message %+v", msg)
	}

	// Other users' channels are not forwarded.
	other, _ := json.Marshal(models.WSMessage{Type: "other"})
	rdb.Publish(context.Background(), models.SessionUpdatesChannel(uuid.New()), other)
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("received a message for another user")
	}
}

func TestHub_SlowSubscribeDoesNotBlockPublish(t *testing.T) {
	// A server that accepts connections and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				io.Copy(io.Discard, c)
			}()
		}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: ln.Addr().String(), ReadTimeout: 2 * time.Second, MaxRetries: -1})
	defer rdb.Close()

	slow := uuid.New()
	h := NewHub(rdb, stubVerifier{"slow": slow})
	defer h.Close()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn, _, err := dial(t, srv, "slow")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for {
		h.mu.RLock()
		n := len(h.connections[slow])
		h.mu.RUnlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		h.Publish(context.Background(), uuid.New(), models.WSMessage{Type: models.WSPracticeUpdated})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked behind a pending subscription")
	}
}
