package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"betinho-miniapp/internal/messaging"
	"betinho-miniapp/internal/services"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type string      `json:"type"`
	Game string      `json:"game,omitempty"`
	Data interface{} `json:"data"`

	to *Client
}

type Client struct {
	Game string
	Conn *websocket.Conn
	send chan *Message
}

// WebSocketHub keeps the live viewers of every game page.
type WebSocketHub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	log        slog.Logger
}

func NewWebSocketHub(log slog.Logger) *WebSocketHub {
	if log == nil {
		log = slog.Disabled
	}
	return &WebSocketHub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
		log:        log,
	}
}

func roomKey(game string) string { return strings.ToLower(game) }

// Run serves the hub until ctx is done. Sends to a stopped hub are
// dropped.
func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)

	for {
		select {
		case <-ctx.Done():
			for _, room := range hub.rooms {
				for client := range room {
					close(client.send)
				}
			}
			hub.rooms = make(map[string]map[*Client]bool)
			return

		case client := <-hub.register:
			key := roomKey(client.Game)
			if hub.rooms[key] == nil {
				hub.rooms[key] = make(map[*Client]bool)
			}
			hub.rooms[key][client] = true
			hub.log.Debugf("Client joined %s", client.Game)

		case client := <-hub.unregister:
			key := roomKey(client.Game)
			if room, ok := hub.rooms[key]; ok && room[client] {
				delete(room, client)
				close(client.send)
				if len(room) == 0 {
					delete(hub.rooms, key)
				}
				hub.log.Debugf("Client left %s", client.Game)
			}

		case message := <-hub.broadcast:
			room := hub.rooms[roomKey(message.Game)]
			if message.to != nil {
				if room[message.to] {
					hub.deliver(room, message.to, message)
				}
				continue
			}
			for client := range room {
				hub.deliver(room, client, message)
			}
		}
	}
}

func (hub *WebSocketHub) deliver(room map[*Client]bool, client *Client, message *Message) {
	select {
	case client.send <- message:
	default:
		hub.log.Warnf("Dropping slow client on %s", client.Game)
		delete(room, client)
		close(client.send)
	}
}

func (hub *WebSocketHub) join(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) leave(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) publish(message *Message) {
	select {
	case hub.broadcast <- message:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) BroadcastBetPlaced(gameAddress string, bet services.BetPlaced) {
	hub.publish(&Message{Type: "BET_PLACED", Game: gameAddress, Data: bet})
}

func (hub *WebSocketHub) BroadcastGameResolved(gameAddress, winningOption, txHash string) {
	hub.publish(&Message{
		Type: "GAME_RESOLVED",
		Game: gameAddress,
		Data: gin.H{
			"winning_option": winningOption,
			"tx_hash":        txHash,
			"timestamp":      time.Now().Unix(),
		},
	})
}

type WebSocketHandler struct {
	session *services.SessionManager
	hub     *WebSocketHub
	peer    string
	log     slog.Logger
}

func NewWebSocketHandler(session *services.SessionManager, hub *WebSocketHub, peer string, log slog.Logger) *WebSocketHandler {
	if log == nil {
		log = slog.Disabled
	}
	return &WebSocketHandler{session: session, hub: hub, peer: peer, log: log}
}

// HandleWebSocket streams the game page: ledger activity from the hub and,
// when messaging is available, live chat. The chat subscription is stopped
// when the socket closes.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		Game: c.Param("contractAddress"),
		Conn: conn,
		send: make(chan *Message, sendBuffer),
	}
	if !h.hub.join(client) {
		conn.Close()
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(client)
	}()

	var sub *messaging.Subscription
	if mc := h.session.Messaging(); mc != nil {
		conv, err := mc.NewConversation(ctx, h.peer)
		if err == nil {
			sub, err = conv.Stream(ctx)
		}
		if err != nil {
			h.log.Warnf("Chat stream unavailable: %v", err)
			sub = nil
		}
	}

	var relayDone chan struct{}
	if sub != nil {
		relayDone = make(chan struct{})
		go func() {
			defer close(relayDone)
			for msg := range sub.C() {
				h.hub.sendTo(client, "CHAT_MESSAGE", msg)
			}
		}()
	}

	h.hub.sendTo(client, "SUBSCRIBED", gin.H{"chat": sub != nil})
	h.readPump(client)

	if sub != nil {
		sub.Stop()
		<-relayDone
	}
	h.hub.leave(client)
	<-writerDone
}

// sendTo hands a message to one client through the hub so every write
// stays on the client's writer.
func (hub *WebSocketHub) sendTo(client *Client, msgType string, data interface{}) {
	hub.publish(&Message{Type: msgType, Game: client.Game, Data: data, to: client})
}

func (h *WebSocketHandler) readPump(client *Client) {
	for {
		var msg Message
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("WebSocket error: %v", err)
			}
			return
		}

		if msg.Type == "PING" {
			h.hub.sendTo(client, "PONG", gin.H{"timestamp": time.Now().Unix()})
		}
	}
}

// writePump owns the connection: once the hub closes send, it closes the
// socket and the read loop ends with it.
func (h *WebSocketHandler) writePump(client *Client) {
	defer client.Conn.Close()

	for msg := range client.send {
		client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteJSON(msg); err != nil {
			h.log.Debugf("WebSocket write failed: %v", err)
		}
	}
}
