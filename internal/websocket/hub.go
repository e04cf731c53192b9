package websocket

import (
	"sync"

	"github.com/marco/chatlink/internal/metrics"
	"go.uber.org/zap"
)

// Hub serializes presence transitions. Connect and disconnect flow through
// its run loop, so a disconnect racing a reconnect for the same user cannot
// interleave registry updates. Fan-out runs off-loop: a slow or failing
// notification can never block or fail a presence transition.
type Hub struct {
	registry   *Registry
	dispatcher *Dispatcher
	collector  *metrics.Collector
	log        *zap.Logger

	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{} // closed when Run() exits
	stopped    bool
	mu         sync.RWMutex
}

func NewHub(registry *Registry, dispatcher *Dispatcher, collector *metrics.Collector, log *zap.Logger) *Hub {
	return &Hub{
		registry:   registry,
		dispatcher: dispatcher,
		collector:  collector,
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			for _, client := range h.registry.drain() {
				client.Close()
			}
			return

		case client := <-h.register:
			h.handleConnect(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)
		}
	}
}

func (h *Hub) handleConnect(client *Client) {
	if evicted := h.registry.MarkOnline(client); evicted != nil {
		// Single-device semantics: the superseded connection is closed, not
		// left half-registered. Its own teardown is a no-op for presence.
		h.log.Info("superseding connection",
			zap.String("user", client.userID.String()))
		evicted.Close()
	}

	h.collector.ConnOpened()
	go h.dispatcher.PresenceChanged(client.userID, true)
}

func (h *Hub) handleDisconnect(client *Client) {
	wasCurrent := h.registry.MarkOffline(client)
	client.Close()
	h.collector.ConnClosed()

	if wasCurrent {
		go h.dispatcher.PresenceChanged(client.userID, false)
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		client.Close()
		return
	}

	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister hands the client to the run loop, tolerating a hub that is
// stopping concurrently.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// Stop shuts down the hub and closes every registered connection. It blocks
// until the run loop has exited.
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	close(h.stop)
	<-h.done
}
