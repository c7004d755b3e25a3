package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/services"
)

type fixedRepo struct{}

func (fixedRepo) LoadConversations(context.Context) ([]models.Conversation, error) {
	return []models.Conversation{{ID: "c1", Participant: models.Participant{ID: "p1", Name: "Ada"}}}, nil
}

func (fixedRepo) SaveConversations(context.Context, []models.Conversation) error { return nil }

func setup(t *testing.T) (*Hub, *services.Session, *gorillaws.Conn) {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	sessions := services.NewSessionService(fixedRepo{}, services.Options{
		TypingTimeout: time.Hour,
		SnippetWidth:  40,
	}, hub)
	sess, err := sessions.CreateSession(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { sessions.Shutdown(context.Background()) })

	r := chi.NewRouter()
	r.Get("/ws/sessions/{sid}", NewHandler(hub, sessions).ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + sess.ID()
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount(sess.ID()) == 1 }, time.Second, 5*time.Millisecond)
	return hub, sess, conn
}

func readEvent(t *testing.T, conn *gorillaws.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event map[string]any
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestHub_PushesSessionEvents(t *testing.T) {
	_, sess, conn := setup(t)

	require.NoError(t, sess.SelectConversation("c1"))
	event := readEvent(t, conn)
	require.Equal(t, string(models.EventUnread), event["type"])
	require.Equal(t, "c1", event["conversation_id"])

	_, err := sess.Receive("c1", "hello there", nil)
	require.NoError(t, err)
	event = readEvent(t, conn)
	require.Equal(t, string(models.EventMessage), event["type"])
	require.Equal(t, "hello there", event["payload"].(map[string]any)["text"])
}

func TestClient_DraftFrameUpdatesComposer(t *testing.T) {
	_, sess, conn := setup(t)
	require.NoError(t, sess.SelectConversation("c1"))
	readEvent(t, conn) // unread

	frame := `{"type":"draft","payload":{"text":"typing away"}}`
	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(frame)))

	event := readEvent(t, conn)
	require.Equal(t, string(models.EventTyping), event["type"])
	require.Eventually(t, func() bool {
		view, err := sess.Thread()
		return err == nil && view.Composer.Draft == "typing away"
	}, time.Second, 5*time.Millisecond)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, sess, conn := setup(t)
	hub.Stop()

	require.Eventually(t, func() bool { return hub.ClientCount(sess.ID()) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	// Publishing after stop must not block.
	done := make(chan struct{})
	go func() {
		hub.Publish(sess.ID(), models.Event{Type: models.EventTyping})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Stop")
	}
}
