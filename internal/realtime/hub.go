// Package realtime fans QueueState changes out to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"backend-antrian-klinik/internal/metrics"
	"backend-antrian-klinik/internal/models"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

/*
|--------------------------------------------------------------------------
| Data Structure
|--------------------------------------------------------------------------
*/

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Topic struct {
	ClinicID int64
	DoctorID int64
}

func (t Topic) String() string {
	return fmt.Sprintf("%d:%d", t.ClinicID, t.DoctorID)
}

func TopicOf(s models.QueueState) Topic {
	return Topic{ClinicID: s.ClinicID, DoctorID: s.DoctorID}
}

type Client struct {
	ID    string
	topic Topic

	conn      Conn
	writeMux  sync.Mutex
	closeChan chan struct{}
	closed    bool
}

// Done is closed once the client has been removed from the hub.
func (c *Client) Done() <-chan struct{} {
	return c.closeChan
}

// Message is the frame pushed to subscribers.
type Message struct {
	Type      string            `json:"type"`
	Data      models.QueueState `json:"data"`
	Timestamp string            `json:"timestamp"`
}

func Encode(state models.QueueState) ([]byte, error) {
	return json.Marshal(Message{
		Type:      "queue_state",
		Data:      state,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

/*
|--------------------------------------------------------------------------
| Hub
|--------------------------------------------------------------------------
*/

const (
	maxWorkers   = 20
	writeTimeout = 3 * time.Second
)

type Hub struct {
	mu      sync.RWMutex
	topics  map[Topic]map[*Client]struct{}
	counter uint64

	log     *zap.Logger
	metrics *metrics.Collector
}

func NewHub(log *zap.Logger, m *metrics.Collector) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		topics:  make(map[Topic]map[*Client]struct{}),
		log:     log.Named("realtime"),
		metrics: m,
	}
}

func (h *Hub) Subscribe(topic Topic, conn Conn) *Client {
	id := atomic.AddUint64(&h.counter, 1)
	client := &Client{
		ID:        fmt.Sprintf("client-%d", id),
		topic:     topic,
		conn:      conn,
		closeChan: make(chan struct{}),
	}

	h.mu.Lock()
	clients, ok := h.topics[topic]
	if !ok {
		clients = make(map[*Client]struct{})
		h.topics[topic] = clients
	}
	clients[client] = struct{}{}
	total := len(clients)
	h.mu.Unlock()

	h.metrics.SubscriberAdded()
	h.log.Debug("client registered", zap.String("client", client.ID), zap.String("topic", topic.String()), zap.Int("total", total))
	return client
}

// Unsubscribe is idempotent and closes the connection.
func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	clients := h.topics[client.topic]
	_, exists := clients[client]
	if exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, client.topic)
		}
	}
	h.mu.Unlock()

	client.writeMux.Lock()
	if !client.closed {
		client.closed = true
		close(client.closeChan)
	}
	client.writeMux.Unlock()

	if exists {
		_ = client.conn.Close()
		h.metrics.SubscriberRemoved()
		h.log.Debug("client unregistered", zap.String("client", client.ID), zap.String("topic", client.topic.String()))
	}
}

// Count returns the number of subscribers on topic.
func (h *Hub) Count(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// PublishQueueState sends state to every subscriber of its doctor.
func (h *Hub) PublishQueueState(_ context.Context, state models.QueueState) error {
	message, err := Encode(state)
	if err != nil {
		return fmt.Errorf("encode queue state: %w", err)
	}
	h.Broadcast(TopicOf(state), message)
	return nil
}

func (h *Hub) Broadcast(topic Topic, message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		sem <- struct{}{}
		go func(c *Client) {
			defer wg.Done()
			defer func() { <-sem }()
			h.Send(c, message)
		}(client)
	}
	wg.Wait()
}

// Send writes to a single client and drops it on write failure.
func (h *Hub) Send(c *Client, message []byte) {
	c.writeMux.Lock()
	if c.closed {
		c.writeMux.Unlock()
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.conn.WriteMessage(websocket.TextMessage, message)
	c.writeMux.Unlock()

	if err != nil {
		h.log.Warn("write failed, dropping client", zap.String("client", c.ID), zap.Error(err))
		h.Unsubscribe(c)
	}
}

// Ping sends a control ping under the client's write lock.
func (h *Hub) Ping(c *Client) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	if c.closed {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}
