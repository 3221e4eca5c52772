// Package notify fans change notifications out to subscribers over
// bounded per-subscriber queues. Delivery is at-least-once in intent but
// lossy under backpressure: a full queue drops its oldest entry rather
// than ever blocking the writer. Consumers reconcile by re-fetching the
// read APIs after a gap.
package notify

import (
	"log/slog"
	"sync"

	"github.com/conquestsam/MLM/entity"
	"github.com/conquestsam/MLM/lib/sl"
)

const defaultQueueSize = 16

type subscriber struct {
	memberId string
	topics   map[string]bool // empty = all topics
	ch       chan entity.ChangeNotification
}

func (s *subscriber) wants(n entity.ChangeNotification) bool {
	if s.memberId != "" && s.memberId != n.MemberId {
		return false
	}
	if len(s.topics) == 0 {
		return true
	}
	return s.topics[n.Topic]
}

// Subscription is a live notification feed. Cancel releases the queue;
// reading C after Cancel sees a closed channel.
type Subscription struct {
	C      <-chan entity.ChangeNotification
	cancel func()
}

func (s *Subscription) Cancel() {
	s.cancel()
}

type Hub struct {
	mu        sync.Mutex
	subs      map[int64]*subscriber
	nextId    int64
	queueSize int
	stopped   bool
	dropped   int64
	log       *slog.Logger
}

func New(log *slog.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		subs:      make(map[int64]*subscriber),
		queueSize: queueSize,
		log:       log.With(sl.Module("notify")),
	}
}

func (h *Hub) Start() {
	h.log.With(slog.Int("queue_size", h.queueSize)).Info("notification hub started")
}

// Stop closes every subscriber channel; later Publish calls are no-ops
// and later Subscribe calls return an already-closed feed.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
	h.log.Info("notification hub stopped")
}

// Subscribe registers a feed for one member (empty memberId = firehose).
// Unknown topic names are ignored; no topics means all topics.
func (h *Hub) Subscribe(memberId string, topics ...string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan entity.ChangeNotification, h.queueSize)
	if h.stopped {
		close(ch)
		return &Subscription{C: ch, cancel: func() {}}
	}

	sub := &subscriber{
		memberId: memberId,
		topics:   make(map[string]bool),
		ch:       ch,
	}
	for _, t := range topics {
		if entity.IsValidTopic(t) {
			sub.topics[t] = true
		}
	}

	h.nextId++
	id := h.nextId
	h.subs[id] = sub

	return &Subscription{
		C:      ch,
		cancel: func() { h.unsubscribe(id) },
	}
}

func (h *Hub) unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.ch)
}

// Publish delivers to every matching subscriber without ever blocking:
// a full queue sheds its oldest notification first.
func (h *Hub) Publish(n entity.ChangeNotification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	for _, sub := range h.subs {
		if !sub.wants(n) {
			continue
		}
		select {
		case sub.ch <- n:
			continue
		default:
		}
		// queue full: shed oldest, then retry once
		select {
		case <-sub.ch:
			h.dropped++
		default:
		}
		select {
		case sub.ch <- n:
		default:
		}
	}
}

// Dropped reports how many notifications were shed under backpressure.
func (h *Hub) Dropped() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
