package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"backend-antrian-klinik/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	failNext bool
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failNext {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.messages))
	for _, raw := range c.messages {
		var m Message
		_ = json.Unmarshal(raw, &m)
		out = append(out, m)
	}
	return out
}

func state(clinicID, doctorID int64, waiting int) models.QueueState {
	return models.QueueState{ClinicID: clinicID, DoctorID: doctorID, BookingDay: "2025-03-10", TotalWaitingCount: waiting}
}

func TestHubDeliversOnlyToTopic(t *testing.T) {
	hub := NewHub(nil, nil)
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Subscribe(Topic{1, 10}, a)
	hub.Subscribe(Topic{1, 10}, b)
	hub.Subscribe(Topic{1, 11}, other)

	if err := hub.PublishQueueState(context.Background(), state(1, 10, 3)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, c := range []*fakeConn{a, b} {
		got := c.received()
		if len(got) != 1 || got[0].Type != "queue_state" || got[0].Data.TotalWaitingCount != 3 {
			t.Fatalf("unexpected messages %+v", got)
		}
	}
	if len(other.received()) != 0 {
		t.Fatalf("other doctor must not receive the update")
	}
}

func TestHubDropsBrokenClient(t *testing.T) {
	hub := NewHub(nil, nil)
	topic := Topic{1, 10}
	good, bad := &fakeConn{}, &fakeConn{failNext: true}
	hub.Subscribe(topic, good)
	badClient := hub.Subscribe(topic, bad)

	_ = hub.PublishQueueState(context.Background(), state(1, 10, 1))

	if hub.Count(topic) != 1 {
		t.Fatalf("count = %d, want 1", hub.Count(topic))
	}
	select {
	case <-badClient.Done():
	default:
		t.Fatalf("broken client should be closed")
	}
	if !bad.closed {
		t.Fatalf("broken connection should be closed")
	}
	if len(good.received()) != 1 {
		t.Fatalf("good client missed the update")
	}
}

func TestHubUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(nil, nil)
	topic := Topic{1, 10}
	c := hub.Subscribe(topic, &fakeConn{})
	hub.Unsubscribe(c)
	hub.Unsubscribe(c)
	if hub.Count(topic) != 0 {
		t.Fatalf("count = %d", hub.Count(topic))
	}
	hub.Send(c, []byte("ignored"))
}

func TestBridgeFansOutThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}

	// dua instance berbagi redis yang sama
	hubA, hubB := NewHub(nil, nil), NewHub(nil, nil)
	bridgeA := NewBridge(newClient(), hubA, nil)
	bridgeB := NewBridge(newClient(), hubB, nil)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	readyA, readyB := make(chan struct{}), make(chan struct{})
	go func() { _ = bridgeA.Run(ctx, readyA) }()
	go func() { _ = bridgeB.Run(ctx, readyB) }()
	<-readyA
	<-readyB

	connA, connB := &fakeConn{}, &fakeConn{}
	hubA.Subscribe(Topic{1, 10}, connA)
	hubB.Subscribe(Topic{1, 10}, connB)

	if err := bridgeA.PublishQueueState(ctx, state(1, 10, 4)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(connA.received()) == 1 && len(connB.received()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	for name, c := range map[string]*fakeConn{"a": connA, "b": connB} {
		got := c.received()
		if len(got) != 1 || got[0].Data.TotalWaitingCount != 4 {
			t.Fatalf("instance %s received %+v", name, got)
		}
	}
}
