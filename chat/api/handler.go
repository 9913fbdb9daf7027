package api

import (
	"net/http"
	"strconv"

	"flight-tracker-chat/backend/chat/service"
	"flight-tracker-chat/backend/pkg/config"
	"flight-tracker-chat/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chats    *service.ChatService
	sessions *service.SessionService
	cfg      *config.Config
}

func NewChatHandler(chats *service.ChatService, sessions *service.SessionService, cfg *config.Config) *ChatHandler {
	return &ChatHandler{chats: chats, sessions: sessions, cfg: cfg}
}

// BootstrapSession mints a fresh anonymous session. The signed credential
// is set as an httpOnly cookie and echoed in the body for clients that
// prefer the Authorization header.
func (h *ChatHandler) BootstrapSession(c *gin.Context) {
	session, signed, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	maxAge := int(h.cfg.Session.TokenExpiry.Seconds())
	c.SetCookie(h.cfg.Session.CookieName, signed, maxAge, "/", "", h.cfg.Session.Secure, true)

	c.JSON(http.StatusCreated, gin.H{
		"session_id":   session.ID,
		"session_name": session.Name,
		"token":        signed,
	})
}

// GetHistory serves one backward-walking page of a chat's messages.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	chatID := c.Param("chat_id")
	sessionID := c.GetString("sessionID")

	var cursor *string
	if raw := c.Query("cursor"); raw != "" {
		cursor = &raw
	}

	pageSize := h.cfg.Chat.DefaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.Error(errors.NewBadRequestError("INVALID_INPUT", "page_size must be a positive integer"))
			return
		}
		pageSize = parsed
	}
	if pageSize > h.cfg.Chat.MaxPageSize {
		pageSize = h.cfg.Chat.MaxPageSize
	}

	messages, nextCursor, err := h.chats.GetHistory(c.Request.Context(), sessionID, chatID, cursor, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":    messages,
		"next_cursor": nextCursor,
	})
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// PostMessage stores a message and fans it out to live viewers.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	chatID := c.Param("chat_id")
	sessionID := c.GetString("sessionID")

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_INPUT", "Request body must be JSON with a content field"))
		return
	}

	message, err := h.chats.PostMessage(c.Request.Context(), sessionID, chatID, req.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, message)
}
