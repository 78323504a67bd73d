package webui

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/moatasem1234/madrasati/internal/api"
	"github.com/moatasem1234/madrasati/internal/chat"
	"github.com/moatasem1234/madrasati/internal/session"
)

// registerRoutes sets up all web UI routes on the Gin router.
func registerRoutes(router *gin.Engine, client *chat.Client, sessions *session.Store) {
	router.GET("/", handleIndex(sessions))

	router.GET("/api/conversations", handleConversations(client))
	router.GET("/api/conversations/:id/messages", handleMessages(client))
	router.POST("/api/conversations/:id/messages", handleSend(client))
	router.PATCH("/api/conversations/:id/read", handleMarkRead(client))
}

func handleIndex(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := ""
		if p := sessions.Principal(); p != nil {
			name = p.Name
		}
		c.HTML(http.StatusOK, "index.html", gin.H{
			"name": name,
		})
	}
}

func handleConversations(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		conversations, err := client.ListConversations(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversations": conversations})
	}
}

func handleMessages(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := conversationID(c)
		if !ok {
			return
		}
		messages, err := client.ListMessages(c.Request.Context(), id, 0, 0)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}

type sendRequest struct {
	Content string `json:"content"`
}

func handleSend(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := conversationID(c)
		if !ok {
			return
		}
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		msg, err := client.SendMessage(c.Request.Context(), id, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

func handleMarkRead(client *chat.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := conversationID(c)
		if !ok {
			return
		}
		if err := client.MarkRead(c.Request.Context(), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// conversationID parses the :id path parameter, writing the error response
// itself on failure.
func conversationID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return 0, false
	}
	return id, true
}

// writeError maps transport errors onto HTTP responses, passing backend
// statuses through.
func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": api.UserMessage(err, "request failed")})
}

func statusFor(err error) int {
	var herr *api.HTTPError
	if errors.As(err, &herr) {
		return herr.Status
	}
	return http.StatusBadGateway
}
