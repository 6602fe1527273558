package stream

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gait_feedback/internal/gait"
	"github.com/relabs-tech/gait_feedback/internal/record"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeMessage struct {
	mqtt.Message
	payload []byte
}

func (m fakeMessage) Payload() []byte { return m.payload }

// fakeClient records publishes and keeps subscription handlers.
type fakeClient struct {
	mqtt.Client

	mu        sync.Mutex
	published map[string][][]byte
	handlers  map[string]mqtt.MessageHandler
	err       error
}

func newFakeClient() *fakeClient {
	return &fakeClient{published: map[string][][]byte{}, handlers: map[string]mqtt.MessageHandler{}}
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return doneToken{err: c.err}
	}
	c.published[topic] = append(c.published[topic], payload.([]byte))
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, h mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = h
	return doneToken{}
}

func (c *fakeClient) deliver(topic string, payload []byte) {
	c.mu.Lock()
	h := c.handlers[topic]
	c.mu.Unlock()
	h(c, fakeMessage{payload: payload})
}

func sample(seq uint64) record.Record {
	return record.Record{
		Seq:          seq,
		Time:         float64(seq) / 100,
		GaitPhase:    gait.Middle,
		StepCount:    3,
		MinThreshold: 5,
		MaxThreshold: 40,
		KneeFlex:     22.5,
	}
}

func TestPublisherAndSubscriber(t *testing.T) {
	client := newFakeClient()
	pub := NewMQTTPublisher(client, "gait/results")

	var got []record.Record
	require.NoError(t, SubscribeResults(client, "gait/results", func(r record.Record) {
		got = append(got, r)
	}))

	want := []record.Record{sample(1), sample(2)}
	for _, r := range want {
		require.NoError(t, pub.Write(r))
	}
	require.Len(t, client.published["gait/results"], 2)

	for _, payload := range client.published["gait/results"] {
		client.deliver("gait/results", payload)
	}
	client.deliver("gait/results", []byte("not json"))

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	var raw map[string]any
	require.NoError(t, json.Unmarshal(client.published["gait/results"][0], &raw))
	assert.Equal(t, "Middle", raw["gait_phase"])
	assert.Contains(t, raw, "knee_flex")
	require.NoError(t, pub.Close())
}

func TestPublisherError(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("not connected")
	err := NewMQTTPublisher(client, "gait/results").Write(sample(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestHubLatest(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler(""))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	require.NoError(t, hub.Write(sample(7)))

	resp, err = http.Get(srv.URL + "/api/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got record.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, sample(7), got)
}

func TestHubWebSocket(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub.Handler(""))
	defer srv.Close()

	require.NoError(t, hub.Write(sample(1)))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var got record.Record
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint64(1), got.Seq, "latest record is sent on connect")

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hub.Write(sample(2)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, sample(2), got)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}
