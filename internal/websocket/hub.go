// Package websocket implements the real-time chat layer: the room hub that
// routes fan-out messages and the per-connection session actors.
package websocket

import (
	"context"
	"encoding/json"
	"log"
)

// Sink is the delivery end the hub holds for each room member. Both methods
// must never block; a delivery to a slow or terminated member is dropped.
type Sink interface {
	// DeliverText hands a ready-made text frame to the member.
	DeliverText(text string)
	// DeliverBlock tells the member it has been blocked or unblocked.
	DeliverBlock(isBlock bool, isInChat bool)
}

// member is one room entry: a display name and the delivery sink.
type member struct {
	name string
	sink Sink
}

// Hub is the process-wide room registry. It tracks which sessions are in
// which room, routes fan-out messages, answers membership counts, and
// executes block commands against specific members. All state is owned by
// the Run loop; commands arrive over a single channel, so within a room
// deliveries preserve command order.
type Hub struct {
	rooms         map[int]map[uint64]member
	nextSessionID uint64
	commands      chan hubCommand
}

// NewHub creates and initializes a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[int]map[uint64]member),
		commands: make(chan hubCommand, 256),
	}
}

// Run starts the central event loop for the Hub. It processes commands
// serially until the context is canceled. This method should be run as a
// goroutine.
func (h *Hub) Run(ctx context.Context) {
	log.Println("[WebSocket Hub] Hub is running.")
	for {
		select {
		case cmd := <-h.commands:
			cmd.apply(h)
		case <-ctx.Done():
			log.Println("[WebSocket Hub] Hub stopped.")
			return
		}
	}
}

// --- Public command API (called from session goroutines) ---

// JoinRoom inserts a member into a room, creating the room if absent, and
// returns the allocated session id together with the new member count. The
// remaining members are notified; the joiner hears its own join via the
// session's reply path.
func (h *Hub) JoinRoom(roomID int, displayName string, sink Sink) (uint64, int) {
	reply := make(chan joinReply, 1)
	h.commands <- joinRoomCmd{roomID: roomID, name: displayName, sink: sink, reply: reply}
	res := <-reply
	return res.sessionID, res.count
}

// LeaveRoom removes a member from a room. The leave notification goes to the
// remaining members and to the leaver itself. Unknown (room, session) pairs
// are ignored.
func (h *Hub) LeaveRoom(roomID int, sessionID uint64, displayName string) {
	h.commands <- leaveRoomCmd{roomID: roomID, sessionID: sessionID, name: displayName}
}

// SendMessage delivers a text frame to every current member of the room,
// including the sender.
func (h *Hub) SendMessage(roomID int, text string) {
	h.commands <- sendMessageCmd{roomID: roomID, text: text}
}

// CountMembers returns the current member count of a room (0 if the room
// does not exist).
func (h *Hub) CountMembers(roomID int) int {
	reply := make(chan int, 1)
	h.commands <- countMembersCmd{roomID: roomID, reply: reply}
	return <-reply
}

// BlockClient delivers a block or unblock directive to every member of the
// room whose display name matches. Reports whether any member matched.
func (h *Hub) BlockClient(roomID int, blockedName string, isBlock bool) bool {
	reply := make(chan bool, 1)
	h.commands <- blockClientCmd{roomID: roomID, blockedName: blockedName, isBlock: isBlock, reply: reply}
	return <-reply
}

// --- Command implementations (run on the Run goroutine) ---

type hubCommand interface {
	apply(h *Hub)
}

type joinReply struct {
	sessionID uint64
	count     int
}

type joinRoomCmd struct {
	roomID int
	name   string
	sink   Sink
	reply  chan<- joinReply
}

func (c joinRoomCmd) apply(h *Hub) {
	h.nextSessionID++
	sessionID := h.nextSessionID

	room, ok := h.rooms[c.roomID]
	if !ok {
		room = make(map[uint64]member)
		h.rooms[c.roomID] = room
	}
	room[sessionID] = member{name: c.name, sink: c.sink}
	count := len(room)
	c.reply <- joinReply{sessionID: sessionID, count: count}

	// Notify everyone already in the room.
	text := marshalFrame(JoinEWS{Join: c.roomID, Member: c.name, Count: count})
	for id, m := range room {
		if id != sessionID {
			m.sink.DeliverText(text)
		}
	}
	log.Printf("[WebSocket Hub] Session %d joined room %d (%d members).", sessionID, c.roomID, count)
}

type leaveRoomCmd struct {
	roomID    int
	sessionID uint64
	name      string
}

func (c leaveRoomCmd) apply(h *Hub) {
	room, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	leaver, ok := room[c.sessionID]
	if !ok {
		return
	}
	delete(room, c.sessionID)
	count := len(room)
	if count == 0 {
		delete(h.rooms, c.roomID)
	}

	text := marshalFrame(LeaveEWS{Leave: c.roomID, Member: c.name, Count: count})
	for _, m := range room {
		m.sink.DeliverText(text)
	}
	// The leaver observes its own leave as well.
	leaver.sink.DeliverText(text)
	log.Printf("[WebSocket Hub] Session %d left room %d (%d members).", c.sessionID, c.roomID, count)
}

type sendMessageCmd struct {
	roomID int
	text   string
}

func (c sendMessageCmd) apply(h *Hub) {
	for _, m := range h.rooms[c.roomID] {
		m.sink.DeliverText(c.text)
	}
}

type countMembersCmd struct {
	roomID int
	reply  chan<- int
}

func (c countMembersCmd) apply(h *Hub) {
	c.reply <- len(h.rooms[c.roomID])
}

type blockClientCmd struct {
	roomID      int
	blockedName string
	isBlock     bool
	reply       chan<- bool
}

func (c blockClientCmd) apply(h *Hub) {
	isInChat := false
	// Every connection under the blocked name gets the directive.
	for _, m := range h.rooms[c.roomID] {
		if m.name == c.blockedName {
			m.sink.DeliverBlock(c.isBlock, true)
			isInChat = true
		}
	}
	c.reply <- isInChat
}

// marshalFrame renders an outbound notification. Marshaling a frame type
// cannot fail; a failure here is a programming error.
func marshalFrame(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("!!! CRITICAL: Failed to marshal frame: %v", err)
		return "{}"
	}
	return string(data)
}
