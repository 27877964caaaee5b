package main

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/samvad-chat/samvad/pkg/bus"
	"github.com/samvad-chat/samvad/pkg/chat"
	"github.com/samvad-chat/samvad/pkg/model"
	"github.com/samvad-chat/samvad/pkg/presence"
	"github.com/samvad-chat/samvad/pkg/store"
)

// inbound is one parsed client event waiting for the hub loop.
type inbound struct {
	client *Client
	event  model.Event
}

// Hub is the relay's reactor: the single goroutine running Run owns room
// membership, user-channel membership, and the presence table. Everything
// else reaches connections through bus frames delivered by Deliver.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]bool            // every open connection
	rooms       map[string]map[*Client]bool // chat ID -> clients
	userClients map[string]map[*Client]bool // user ID -> clients

	register   chan *Client
	unregister chan *Client
	events     chan inbound

	tracker  *presence.Tracker
	bus      bus.Bus
	pipeline *Pipeline
	messages store.MessageStore
}

func NewHub(tracker *presence.Tracker, b bus.Bus, pipeline *Pipeline, messages store.MessageStore) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		userClients: make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		events:      make(chan inbound, 64),
		tracker:     tracker,
		bus:         b,
		pipeline:    pipeline,
		messages:    messages,
	}
}

// Run processes connection lifecycle and client events until the hub's
// channels close. Must be the only goroutine mutating hub state.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("connection opened: %s", client.id)

		case client := <-h.unregister:
			h.dropClient(client)

		case in := <-h.events:
			h.dispatch(in)
		}
	}
}

func (h *Hub) dispatch(in inbound) {
	switch in.event.Event {
	case model.EventRegister:
		var p model.RegisterPayload
		if err := json.Unmarshal(in.event.Data, &p); err != nil || p.UserID == "" {
			log.Printf("register: malformed payload from %s", in.client.id)
			return
		}
		h.handleRegister(in.client, p.UserID)

	case model.EventJoin:
		var p model.JoinPayload
		if err := json.Unmarshal(in.event.Data, &p); err != nil {
			log.Printf("join: malformed payload from %s", in.client.id)
			return
		}
		h.handleJoin(in.client, p)

	case model.EventMessage:
		var p model.SubmitPayload
		if err := json.Unmarshal(in.event.Data, &p); err != nil {
			log.Printf("message: malformed payload from %s", in.client.id)
			return
		}
		// Persistence happens off the reactor; the sender learns of a
		// failure only by the absence of a fan-out.
		go func() {
			if _, err := h.pipeline.Submit(context.Background(), p); err != nil {
				log.Printf("message from %s rejected: %v", in.client.id, err)
			}
		}()

	case model.EventTyping:
		var p model.TypingPayload
		if err := json.Unmarshal(in.event.Data, &p); err != nil {
			log.Printf("typing: malformed payload from %s", in.client.id)
			return
		}
		h.publish(bus.Frame{
			Scope:       bus.ScopeRoom,
			Target:      p.ChatID,
			ExcludeConn: in.client.id,
			Event:       model.NewEvent(model.EventTyping, p),
		})

	case model.EventRead:
		var p model.ReadPayload
		if err := json.Unmarshal(in.event.Data, &p); err != nil {
			log.Printf("read: malformed payload from %s", in.client.id)
			return
		}
		go func() {
			if err := h.pipeline.MarkRead(context.Background(), p); err != nil {
				log.Printf("read receipt from %s rejected: %v", in.client.id, err)
			}
		}()

	default:
		log.Printf("unknown event %q from %s", in.event.Event, in.client.id)
	}
}

// handleRegister binds the connection to a logical user, enrolls it into the
// user-scoped channel, and broadcasts the updated roster to everyone.
func (h *Hub) handleRegister(client *Client, userID string) {
	h.mu.Lock()
	if client.userID != "" && client.userID != userID {
		h.leaveUserChannelLocked(client)
	}
	client.userID = userID
	if h.userClients[userID] == nil {
		h.userClients[userID] = make(map[*Client]bool)
	}
	h.userClients[userID][client] = true
	h.mu.Unlock()

	h.tracker.Register(context.Background(), client.id, userID)
	log.Printf("user %s registered on connection %s", userID, client.id)
	h.broadcastRoster()
}

// handleJoin enrolls the connection into the chat room and replays history to
// the joining connection only.
func (h *Hub) handleJoin(client *Client, p model.JoinPayload) {
	if _, err := chat.Parse(p.ChatID); err != nil {
		log.Printf("join rejected: %v", err)
		return
	}

	h.mu.Lock()
	if h.rooms[p.ChatID] == nil {
		h.rooms[p.ChatID] = make(map[*Client]bool)
	}
	h.rooms[p.ChatID][client] = true
	if client.userID == "" {
		client.userID = p.UserID
	}
	h.mu.Unlock()

	log.Printf("user %s joined room %s", p.UserID, p.ChatID)

	go func() {
		history, err := h.messages.ListByChat(context.Background(), p.ChatID)
		if err != nil {
			// The join must survive a store failure; the client just sees an
			// empty history.
			log.Printf("history fetch for %s failed: %v", p.ChatID, err)
			history = nil
		}
		if history == nil {
			history = []model.Message{}
		}
		client.enqueue(model.NewEvent(model.EventChatHistory, history))
	}()
}

// dropClient removes a disconnected client from every room and channel, then
// broadcasts the shrunken roster.
func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		// Already dropped; a second unregister is a no-op.
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for chatID, members := range h.rooms {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	h.leaveUserChannelLocked(client)
	client.closeSend()
	h.mu.Unlock()

	h.tracker.Deregister(context.Background(), client.id)
	log.Printf("connection closed: %s (user %q)", client.id, client.userID)
	h.broadcastRoster()
}

func (h *Hub) leaveUserChannelLocked(client *Client) {
	if client.userID == "" {
		return
	}
	if members, ok := h.userClients[client.userID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.userClients, client.userID)
		}
	}
}

func (h *Hub) broadcastRoster() {
	h.publish(bus.Frame{
		Scope: bus.ScopeAll,
		Event: model.NewEvent(model.EventOnlineUsers, h.tracker.Roster()),
	})
}

// publish hands a frame to the bus. Called from the reactor goroutine so
// frames for the same audience keep their order.
func (h *Hub) publish(f bus.Frame) {
	if err := h.bus.Publish(context.Background(), f); err != nil {
		log.Printf("publish %s frame failed: %v", f.Event.Event, err)
	}
}

// Deliver routes one bus frame to this instance's matching connections. A
// frame for a room or user with no local listeners is a silent no-op.
func (h *Hub) Deliver(f bus.Frame) {
	payload, err := json.Marshal(f.Event)
	if err != nil {
		log.Printf("deliver: marshal %s: %v", f.Event.Event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	switch f.Scope {
	case bus.ScopeRoom:
		for client := range h.rooms[f.Target] {
			if client.id == f.ExcludeConn {
				continue
			}
			client.trySend(payload)
		}
	case bus.ScopeUser:
		for client := range h.userClients[f.Target] {
			client.trySend(payload)
		}
	case bus.ScopeAll:
		for client := range h.clients {
			client.trySend(payload)
		}
	}
}
