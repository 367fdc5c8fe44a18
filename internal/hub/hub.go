package hub

import (
	"context"

	"github.com/groupstage/draw-backend/internal/groups"
)

type Msg interface{ isHubMsg() }

type Join struct {
	Slug     string
	ClientID string
	Outbox   chan groups.Event
}

type Leave struct {
	Slug     string
	ClientID string
}

type Publish struct {
	Slug  string
	Event groups.Event
}

type Shutdown struct{}

func (Join) isHubMsg()     {}
func (Leave) isHubMsg()    {}
func (Publish) isHubMsg()  {}
func (Shutdown) isHubMsg() {}

// Hub fans allocation events out to spectators, grouped into rooms by
// tournament slug. A single goroutine owns all room state; everything goes
// through the inbox.
type Hub struct {
	inbox  chan Msg
	rooms  map[string]map[string]chan groups.Event
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]map[string]chan groups.Event),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

// Publish implements groups.Notifier. Best effort: if the hub is backed up
// the event is dropped rather than blocking the caller.
func (h *Hub) Publish(slug string, event groups.Event) {
	select {
	case h.inbox <- Publish{Slug: slug, Event: event}:
	default:
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				room := h.rooms[msg.Slug]
				if room == nil {
					room = make(map[string]chan groups.Event)
					h.rooms[msg.Slug] = room
				}
				room[msg.ClientID] = msg.Outbox

			case Leave:
				if room := h.rooms[msg.Slug]; room != nil {
					delete(room, msg.ClientID)
					if len(room) == 0 {
						delete(h.rooms, msg.Slug)
					}
				}

			case Publish:
				h.broadcast(msg.Slug, msg.Event)

			case Shutdown:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) broadcast(slug string, event groups.Event) {
	for id, ch := range h.rooms[slug] {
		select {
		case ch <- event:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(h.rooms[slug], id)
		}
	}
}

func (h *Hub) shutdown() {
	for slug, room := range h.rooms {
		for id, ch := range room {
			close(ch)
			delete(room, id)
		}
		delete(h.rooms, slug)
	}
	h.cancel()
}
