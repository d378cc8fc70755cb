package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []importrun.Event
}

func (c *capturePublisher) Publish(_ context.Context, event importrun.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestEncodeWrapsEventWithName(t *testing.T) {
	payload, err := Encode(importrun.ProgressEvent{ImportRunID: "run-1", Progress: 50, Processed: 50, Total: 150})
	require.NoError(t, err)

	var decoded struct {
		Event       string         `json:"event"`
		ImportRunID string         `json:"importRunId"`
		Data        map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, importrun.EventProgress, decoded.Event)
	assert.Equal(t, "run-1", decoded.ImportRunID)
	assert.EqualValues(t, 50, decoded.Data["progress"])
	assert.EqualValues(t, 150, decoded.Data["total"])
}

func TestFanoutDeliversToEveryPublisher(t *testing.T) {
	a, b := &capturePublisher{}, &capturePublisher{}
	fanout := NewFanout(a, nil, b)
	assert.Equal(t, 2, fanout.Len())

	fanout.Publish(context.Background(), importrun.FailedEvent{ImportRunID: "run-1", Error: "boom"})

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, importrun.EventFailed, b.events[0].EventName())
}

func TestLogPublisherWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	NewLogPublisher(logger).Publish(context.Background(), importrun.CompleteEvent{
		ImportRunID: "run-7",
		Status:      importrun.StatusPartial,
		Statistics:  importrun.Statistics{Total: 3, New: 2, Failed: 1},
	})

	out := buf.String()
	assert.Contains(t, out, `"msg":"import complete"`)
	assert.Contains(t, out, `"import_run_id":"run-7"`)
	assert.Contains(t, out, `"status":"partial"`)
}

func TestKafkaPublisherKeysByRunID(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	p.Publish(context.Background(), importrun.CompleteEvent{ImportRunID: "run-9", Status: importrun.StatusCompleted})

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "run-9", string(w.msgs[0].Key))
	assert.Equal(t, importrun.EventComplete, string(w.msgs[0].Headers[0].Value))
	assert.Contains(t, string(w.msgs[0].Value), `"event":"import:complete"`)
}

func TestKafkaPublisherSwallowsWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisher(w, slog.New(slog.NewTextHandler(&buf, nil)))

	p.Publish(context.Background(), importrun.FailedEvent{ImportRunID: "run-1"})

	assert.Contains(t, buf.String(), "broker down")
}

func dialHub(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubStreamsEventsToClients(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	all := dialHub(t, server, "")
	filtered := dialHub(t, server, "?import_run_id=run-2")
	waitForClients(t, hub, 2)

	hub.Publish(context.Background(), importrun.ProgressEvent{ImportRunID: "run-1", Progress: 10})
	hub.Publish(context.Background(), importrun.ProgressEvent{ImportRunID: "run-2", Progress: 30})

	_ = all.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, first, err := all.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(first), `"importRunId":"run-1"`)
	_, second, err := all.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(second), `"importRunId":"run-2"`)

	_ = filtered.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, only, err := filtered.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(only), `"importRunId":"run-2"`)
}

func TestHubDeliversRelayedPayload(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	conn := dialHub(t, server, "?import_run_id=run-5")
	waitForClients(t, hub, 1)

	payload, err := Encode(importrun.FailedEvent{ImportRunID: "run-5", Error: "fetch failed"})
	require.NoError(t, err)
	hub.Deliver(payload)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, got, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(got))
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub := NewHub(nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server, "")
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()
	waitForClients(t, hub, 0)
}

func TestRedisPublisherRelayIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	p := NewRedisPublisher(rdb, "job-import:test:"+time.Now().Format("150405.000000"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan []byte, 1)
	go func() {
		_ = p.Relay(ctx, func(b []byte) {
			select {
			case received <- b:
			default:
			}
		})
	}()

	// PUBLISH before SUBSCRIBE is lost, so keep publishing until the relay sees one.
	for {
		p.Publish(ctx, importrun.CompleteEvent{ImportRunID: "run-r", Status: importrun.StatusCompleted})
		select {
		case got := <-received:
			assert.Contains(t, string(got), `"importRunId":"run-r"`)
			return
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("relay never received the event")
		}
	}
}
