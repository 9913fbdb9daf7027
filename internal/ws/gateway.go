// Package ws is the subscription gateway: one long-lived websocket per
// connected viewer, carrying that viewer's live feed for a single chat.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"flight-tracker-chat/backend/chat/models"
	"flight-tracker-chat/backend/chat/service"
	"flight-tracker-chat/backend/pkg/errors"
	"flight-tracker-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; the extension runs on arbitrary pages
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Event is the wire envelope pushed to clients
type Event struct {
	Type    string          `json:"type"`
	Content *models.Message `json:"content"`
}

// Gateway upgrades connections and bridges the chat service's live feed
// onto them.
type Gateway struct {
	chats *service.ChatService
	log   *logger.Logger

	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	maxMessageSize int64
}

func NewGateway(chats *service.ChatService, log *logger.Logger, writeWait, pongWait time.Duration, maxMessageSize int64) *Gateway {
	return &Gateway{
		chats:          chats,
		log:            log,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pongWait * 9 / 10,
		maxMessageSize: maxMessageSize,
	}
}

// Serve handles GET /ws?chatId=...
func (g *Gateway) Serve(c *gin.Context) {
	chatID := c.Query("chatId")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "INVALID_INPUT", "message": "chatId is required"},
		})
		return
	}

	sessionID := c.GetString("sessionID")

	// Subscribe before upgrading so a policy rejection is still a plain
	// HTTP response.
	events, cancel, err := g.chats.SubscribeLive(c.Request.Context(), sessionID, chatID)
	if err != nil {
		appErr := errors.FromError(err)
		c.JSON(appErr.StatusCode, gin.H{
			"error": gin.H{"code": appErr.Code, "message": appErr.Message},
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		g.log.LogError(err, "websocket upgrade failed", "chat_id", chatID)
		return
	}

	client := &client{
		gateway: g,
		conn:    conn,
		events:  events,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     g.log.WithChatID(chatID).WithSessionID(sessionID),
	}

	g.log.Info("live feed opened", "chat_id", chatID, "session_id", sessionID)

	go client.writePump()
	go client.readPump()
}

type client struct {
	gateway *Gateway
	conn    *websocket.Conn
	events  <-chan *models.Message
	cancel  func()
	done    chan struct{}
	log     *logger.Logger
}

// readPump consumes control frames and detects disconnects. Clients post
// through the HTTP API, so inbound data frames are discarded. On exit the
// broker subscription is closed before the connection is torn down, so no
// event is ever delivered into a dead sink.
func (c *client) readPump() {
	defer func() {
		c.cancel()
		close(c.done)
		c.conn.Close()
		c.log.Debug("live feed closed")
	}()

	c.conn.SetReadLimit(c.gateway.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.gateway.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.gateway.pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("unexpected websocket close", "error", err)
			}
			return
		}
	}
}

// writePump pushes live events and keeps the connection alive with pings
func (c *client) writePump() {
	ticker := time.NewTicker(c.gateway.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.events:
			payload, err := json.Marshal(Event{Type: "message", Content: message})
			if err != nil {
				c.log.LogError(err, "failed to encode live event", "message_id", message.ID)
				continue
			}

			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
