package websocket

import (
	"log"
	"net/http"
	"time"

	"livechat/internal/apperr"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings to peer with this period. Must be less than pongWait.
	maxMessageSize = 4096                // Maximum message size allowed from peer.
	sendBuffer     = 256                 // Outbound frame buffer.
	inboxBuffer    = 256                 // Session mailbox buffer.
)

// Client is the per-connection chat session actor. Its state is mutated only
// by the Run loop; inbound frames, results of spawned assistant tasks, and
// hub deliveries all arrive as commands in the inbox.
type Client struct {
	connID    string // correlation id for log lines
	conn      *websocket.Conn
	hub       *Hub
	assistant Assistant

	// Session state, owned by the Run loop.
	id        uint64
	roomID    int
	userID    int
	userName  string
	isOwner   bool
	isBlocked bool

	inbox chan clientCommand
	send  chan []byte
	done  chan struct{}
}

// NewClient creates a new chat session for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, assistant Assistant) *Client {
	return &Client{
		connID:    uuid.NewString(),
		conn:      conn,
		hub:       hub,
		assistant: assistant,
		inbox:     make(chan clientCommand, inboxBuffer),
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Run is the session's event loop. All session state is mutated here and
// nowhere else. It exits on the teardown command enqueued when the socket
// closes.
func (c *Client) Run() {
	for cmd := range c.inbox {
		if _, ok := cmd.(closeAndStop); ok {
			c.teardown()
			return
		}
		cmd.execute(c)
	}
}

// ReadPump pumps frames from the websocket connection into the inbox.
func (c *Client) ReadPump() {
	defer func() {
		// The teardown command rides the same mailbox as the frames, so a
		// pending leave is processed before the session stops.
		c.enqueue(closeAndStop{})
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WebSocket %s] read error: %v", c.connID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.enqueue(inboundFrame{text: string(message)})
	}
}

// WritePump pumps frames from the send channel to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WebSocket %s] write error: %v", c.connID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// --- Sink implementation (called from the hub goroutine; must not block) ---

// DeliverText hands a fan-out frame to the session.
func (c *Client) DeliverText(text string) {
	select {
	case c.inbox <- deliverText{text: text}:
	case <-c.done:
	default:
		log.Printf("[WebSocket %s] inbox full, dropping fan-out frame", c.connID)
	}
}

// DeliverBlock hands a block/unblock directive to the session.
func (c *Client) DeliverBlock(isBlock bool, isInChat bool) {
	select {
	case c.inbox <- deliverBlock{isBlock: isBlock, isInChat: isInChat}:
	case <-c.done:
	default:
		log.Printf("[WebSocket %s] inbox full, dropping block directive", c.connID)
	}
}

// --- Mailbox plumbing ---

// enqueue places a command in the inbox, giving up once the session is done.
// Results arriving for a terminated session are silently dropped.
func (c *Client) enqueue(cmd clientCommand) {
	select {
	case c.inbox <- cmd:
	case <-c.done:
	}
}

// sendFrame marshals a notification onto the outbound channel.
func (c *Client) sendFrame(v any) {
	data := []byte(marshalFrame(v))
	select {
	case c.send <- data:
	case <-c.done:
	default:
		log.Printf("[WebSocket %s] send channel full, dropping frame", c.connID)
	}
}

// sendErr reports a per-event failure as exactly one err frame.
func (c *Client) sendErr(serr *apperr.StatusError) {
	c.sendFrame(NewErrEWS(serr))
}

// teardown leaves the current room (the hub must observe the leave before
// the session disappears) and shuts the outbound pump down.
func (c *Client) teardown() {
	if c.roomID != 0 {
		c.leaveRoom()
	}
	close(c.done)
	close(c.send)
}

// leaveRoom issues the leave to the hub and resets the room-scoped state.
func (c *Client) leaveRoom() {
	c.hub.LeaveRoom(c.roomID, c.id, c.userName)
	c.id = 0
	c.roomID = 0
	c.isOwner = false
	c.isBlocked = false
}

// --- Inbound event dispatch (run loop only) ---

type clientCommand interface {
	execute(c *Client)
}

type closeAndStop struct{}

func (closeAndStop) execute(*Client) {}

type inboundFrame struct {
	text string
}

func (f inboundFrame) execute(c *Client) {
	event, err := ParseEvent(f.text)
	if err != nil {
		c.sendErr(apperr.Newf(http.StatusBadRequest, "%s; %v", apperr.MsgParsingError, err))
		return
	}

	switch event.Type {
	case EventEcho:
		c.handleEcho(event.GetString("echo"))
	case EventName:
		c.handleName(event.GetString("name"))
	case EventJoin:
		c.handleJoin(event.GetInt("join"), event.GetString("access"))
	case EventLeave:
		c.handleLeave()
	case EventMsg:
		c.handleMsg(event.GetString("msg"))
	case EventMsgPut:
		c.handleMsgPut(event.GetString("msgPut"), event.GetInt("id"))
	case EventMsgCut:
		c.handleMsgCut(event.GetInt("id"))
	case EventMsgRmv:
		c.handleMsgRmv(event.GetInt("msgRmv"))
	case EventBlock:
		c.handleBlock(event.GetString("block"), true)
	case EventUnblock:
		c.handleBlock(event.GetString("unblock"), false)
	case EventCount:
		c.handleCount()
	}
}

func (c *Client) handleEcho(echo string) {
	if serr := checkIsNotEmpty(echo, "echo"); serr != nil {
		c.sendErr(serr)
		return
	}
	c.sendFrame(EchoEWS{Echo: echo})
}

func (c *Client) handleName(name string) {
	if serr := checkIsNotEmpty(name, "name"); serr != nil {
		c.sendErr(serr)
		return
	}
	if c.roomID != 0 {
		c.sendErr(apperr.New(http.StatusConflict, apperr.MsgThereWasAlreadyJoinToRoom))
		return
	}
	if name != c.userName {
		c.userName = name
	}
	c.sendFrame(NameEWS{Name: c.userName})
}

func (c *Client) handleJoin(roomID int, access string) {
	if serr := checkIsGreaterThanZero(roomID, "join"); serr != nil {
		c.sendErr(serr)
		return
	}
	if c.roomID == roomID {
		c.sendErr(apperr.New(http.StatusConflict, apperr.MsgThereWasAlreadyJoinToRoom))
		return
	}

	var optUserID *int
	numToken := 0
	if access != "" {
		// Token decoding is local; it runs on the event loop.
		userID, num, serr := c.assistant.DecodeAndVerifyToken(access)
		if serr != nil {
			c.sendErr(serr)
			return
		}
		optUserID = &userID
		numToken = num
	}

	userName := c.userName
	assistant := c.assistant
	go func() {
		if optUserID != nil {
			session, serr := assistant.CheckNumTokenAndGetUser(*optUserID, numToken)
			if serr != nil {
				c.enqueue(asyncError{serr: serr})
				return
			}
			userName = *session.Nickname
		}

		chatAccess, serr := assistant.GetChatAccess(roomID, optUserID)
		if serr != nil {
			c.enqueue(asyncError{serr: serr})
			return
		}
		if chatAccess == nil {
			c.enqueue(asyncError{serr: apperr.Newf(http.StatusNotFound, "%s; stream_id: %d", apperr.MsgStreamNotFound, roomID)})
			return
		}
		if !chatAccess.StreamLive {
			c.enqueue(asyncError{serr: apperr.New(http.StatusConflict, apperr.MsgStreamNotActive)})
			return
		}

		isOwner := optUserID != nil && *optUserID == chatAccess.StreamOwner
		isBlocked := true
		userID := 0
		if optUserID != nil {
			isBlocked = chatAccess.IsBlocked
			userID = *optUserID
		}
		c.enqueue(asyncJoin{roomID: roomID, userID: userID, userName: userName, isOwner: isOwner, isBlocked: isBlocked})
	}()
}

func (c *Client) handleLeave() {
	if serr := checkIsJoinedRoom(c.roomID); serr != nil {
		c.sendErr(serr)
		return
	}
	c.leaveRoom()
}

func (c *Client) handleMsg(msg string) {
	if serr := checkIsNotEmpty(msg, "msg"); serr != nil {
		c.sendErr(serr)
		return
	}
	if serr := checkIsJoinedRoom(c.roomID); serr != nil {
		c.sendErr(serr)
		return
	}
	if serr := checkIsBlocked(c.isBlocked); serr != nil {
		c.sendErr(serr)
		return
	}

	streamID := c.roomID
	userID := c.userID
	assistant := c.assistant
	go func() {
		message, serr := assistant.ExecuteCreateChatMessage(streamID, userID, msg)
		if serr != nil {
			c.enqueue(asyncError{serr: serr})
			return
		}
		if message == nil {
			c.enqueue(asyncError{serr: apperr.Newf(http.StatusNotFound, "%s; stream_id: %d", apperr.MsgStreamNotFound, streamID)})
			return
		}
		c.enqueue(asyncSendText{text: marshalFrame(NewMsgEWS(message))})
	}()
}

func (c *Client) handleMsgPut(msgPut string, id int) {
	if serr := checkIsNotEmpty(msgPut, "msgPut"); serr != nil {
		c.sendErr(serr)
		return
	}
	c.modifyChatMessage(id, msgPut)
}

func (c *Client) handleMsgCut(id int) {
	c.modifyChatMessage(id, "")
}

// modifyChatMessage runs the shared precondition chain of msgPut and msgCut
// and spawns the store call. An empty body is the soft delete.
func (c *Client) modifyChatMessage(id int, msg string) {
	if serr := checkIsGreaterThanZero(id, "id"); serr != nil {
		c.sendErr(serr)
		return
	}
	if serr := checkIsJoinedRoom(c.roomID); serr != nil {
		c.sendErr(serr)
		return
	}
	if serr := checkIsBlocked(c.isBlocked); serr != nil {
		c.sendErr(serr)
		return
	}

	userID := c.userID
	assistant := c.assistant
	go func() {
		message, serr := assistant.ExecuteModifyChatMessage(id, userID, msg)
		if serr != nil {
			c.enqueue(asyncError{serr: serr})
			return
		}
		if message == nil {
			c.enqueue(asyncError{serr: apperr.Newf(http.StatusNotFound, "%s; id: %d, user_id: %d", apperr.MsgChatMessageNotFound, id, userID)})
			return
		}
		c.enqueue(asyncSendText{text: marshalFrame(NewMsgEWS(message))})
	}()
}

func (c *Client) handleMsgRmv(msgRmv int) {
	if serr := checkIsGreaterThanZero(msgRmv, "msgRmv"); serr != nil {
		c.sendErr(serr)
		return
	}
	if serr := checkIsJoinedRoom(c.roomID); serr != nil {
		c.sendErr(serr)
		return
	}
	if serr := checkIsBlocked(c.isBlocked); serr != nil {
		c.sendErr(serr)
		return
	}

	userID := c.userID
	assistant := c.assistant
	go func() {
		message, serr := assistant.ExecuteDeleteChatMessage(msgRmv, userID)
		if serr != nil {
			c.enqueue(asyncError{serr: serr})
			return
		}
		if message == nil {
			c.enqueue(asyncError{serr: apperr.Newf(http.StatusNotFound, "%s; id: %d, user_id: %d", apperr.MsgChatMessageNotFound, msgRmv, userID)})
			return
		}
		c.enqueue(asyncSendText{text: marshalFrame(MsgRmvEWS{MsgRmv: msgRmv})})
	}()
}

func (c *Client) handleBlock(blockedName string, isBlock bool) {
	tagName := "block"
	if !isBlock {
		tagName = "unblock"
	}
	if serr := checkIsNotEmpty(blockedName, tagName); serr != nil {
		c.sendErr(serr)
		return
	}
	if serr := checkIsJoinedRoom(c.roomID); serr != nil {
		c.sendErr(serr)
		return
	}
	if serr := checkIsOwnerRoom(c.isOwner); serr != nil {
		c.sendErr(serr)
		return
	}

	roomID := c.roomID
	blockerID := c.userID
	assistant := c.assistant
	go func() {
		blocked, serr := assistant.ExecuteBlockUser(isBlock, blockerID, nil, &blockedName)
		if serr != nil {
			c.enqueue(asyncError{serr: serr})
			return
		}
		if blocked == nil {
			c.enqueue(asyncError{serr: apperr.Newf(http.StatusNotFound, "%s; blocked_nickname: '%s'", apperr.MsgUserNotFound, blockedName)})
			return
		}
		c.enqueue(asyncBlockClient{roomID: roomID, isBlock: isBlock, blockedName: blocked.BlockedNickname})
	}()
}

func (c *Client) handleCount() {
	if serr := checkIsJoinedRoom(c.roomID); serr != nil {
		c.sendErr(serr)
		return
	}
	count := c.hub.CountMembers(c.roomID)
	c.sendFrame(CountEWS{Count: count})
}

// --- Self-addressed results of spawned tasks ---

type asyncError struct {
	serr *apperr.StatusError
}

func (r asyncError) execute(c *Client) {
	c.sendErr(r.serr)
}

type asyncJoin struct {
	roomID    int
	userID    int
	userName  string
	isOwner   bool
	isBlocked bool
}

func (r asyncJoin) execute(c *Client) {
	// Switching rooms leaves the old one first.
	if c.roomID != 0 {
		c.leaveRoom()
	}

	c.userID = r.userID
	c.userName = r.userName
	c.isOwner = r.isOwner
	c.isBlocked = r.isBlocked

	id, count := c.hub.JoinRoom(r.roomID, c.userName, c)
	c.id = id
	c.roomID = r.roomID

	isOwner := r.isOwner
	isBlocked := r.isBlocked
	c.sendFrame(JoinEWS{
		Join:      r.roomID,
		Member:    c.userName,
		Count:     count,
		IsOwner:   &isOwner,
		IsBlocked: &isBlocked,
	})
}

type asyncSendText struct {
	text string
}

func (r asyncSendText) execute(c *Client) {
	c.hub.SendMessage(c.roomID, r.text)
}

type asyncBlockClient struct {
	roomID      int
	isBlock     bool
	blockedName string
}

func (r asyncBlockClient) execute(c *Client) {
	isInChat := c.hub.BlockClient(r.roomID, r.blockedName, r.isBlock)
	if r.isBlock {
		c.sendFrame(BlockEWS{Block: r.blockedName, IsInChat: isInChat})
	} else {
		c.sendFrame(UnblockEWS{Unblock: r.blockedName, IsInChat: isInChat})
	}
}

// --- Hub deliveries ---

type deliverText struct {
	text string
}

func (d deliverText) execute(c *Client) {
	select {
	case c.send <- []byte(d.text):
	case <-c.done:
	default:
		log.Printf("[WebSocket %s] send channel full, dropping fan-out frame", c.connID)
	}
}

type deliverBlock struct {
	isBlock  bool
	isInChat bool
}

func (d deliverBlock) execute(c *Client) {
	c.isBlocked = d.isBlock
	if d.isBlock {
		c.sendFrame(BlockEWS{Block: c.userName, IsInChat: d.isInChat})
	} else {
		c.sendFrame(UnblockEWS{Unblock: c.userName, IsInChat: d.isInChat})
	}
}
