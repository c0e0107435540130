package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"prizepool/core/events"
)

type capture struct {
	mu        sync.Mutex
	bodies    [][]byte
	headers   []http.Header
	delivered chan struct{}
	failFirst bool
	calls     int
}

func (c *capture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.calls++
		fail := c.failFirst && c.calls == 1
		if !fail {
			body, _ := io.ReadAll(r.Body)
			c.bodies = append(c.bodies, body)
			c.headers = append(c.headers, r.Header.Clone())
		}
		c.mu.Unlock()
		if fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		select {
		case c.delivered <- struct{}{}:
		default:
		}
	}
}

func waitDelivered(t *testing.T, c *capture) {
	t.Helper()
	select {
	case <-c.delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook delivery timed out")
	}
}

func TestDispatcherSignsAndDelivers(t *testing.T) {
	sink := &capture{delivered: make(chan struct{}, 1)}
	server := httptest.NewServer(sink.handler())
	defer server.Close()

	secret := []byte("topsecret")
	dispatcher, err := NewDispatcher(server.URL, secret)
	require.NoError(t, err)
	defer dispatcher.Close()

	require.NoError(t, dispatcher.EnqueueSettled(DrawSettledPayload{
		RequestID:     7,
		Winner:        "pzt1qqqq",
		Prize:         "2000",
		Fee:           "200",
		WinnerAmount:  "1800",
		HeightSettled: 900,
	}))
	waitDelivered(t, sink)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.bodies, 1)
	require.Equal(t, string(EventDrawSettled), sink.headers[0].Get("X-Pool-Event"))

	mac := hmac.New(sha256.New, secret)
	mac.Write(sink.bodies[0])
	require.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), sink.headers[0].Get("X-Pool-Signature"))

	var payload DrawSettledPayload
	require.NoError(t, json.Unmarshal(sink.bodies[0], &payload))
	require.Equal(t, uint64(7), payload.RequestID)
	require.Equal(t, "1800", payload.WinnerAmount)
	require.NotEmpty(t, payload.DeliveryID)
}

func TestDispatcherRetriesFailedDelivery(t *testing.T) {
	sink := &capture{delivered: make(chan struct{}, 1), failFirst: true}
	server := httptest.NewServer(sink.handler())
	defer server.Close()

	dispatcher, err := NewDispatcher(server.URL, []byte("s"),
		WithRetryPolicy(3, 10*time.Millisecond, 20*time.Millisecond))
	require.NoError(t, err)
	defer dispatcher.Close()

	require.NoError(t, dispatcher.EnqueueRecovered(DrawRecoveredPayload{RequestID: 3, HeightRecovered: 600}))
	waitDelivered(t, sink)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.GreaterOrEqual(t, sink.calls, 2)
	require.Len(t, sink.bodies, 1)
}

func TestEmitterForwardsDrawEvents(t *testing.T) {
	sink := &capture{delivered: make(chan struct{}, 1)}
	server := httptest.NewServer(sink.handler())
	defer server.Close()

	dispatcher, err := NewDispatcher(server.URL, []byte("s"))
	require.NoError(t, err)
	defer dispatcher.Close()

	emitter := NewEmitter(dispatcher, nil)
	emitter.Emit(events.AwardSettled{
		RequestID:    11,
		Prize:        big.NewInt(500),
		Fee:          big.NewInt(50),
		WinnerAmount: big.NewInt(450),
	})
	waitDelivered(t, sink)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.bodies, 1)
	var payload DrawSettledPayload
	require.NoError(t, json.Unmarshal(sink.bodies[0], &payload))
	require.Equal(t, uint64(11), payload.RequestID)
	require.Equal(t, "450", payload.WinnerAmount)
}
