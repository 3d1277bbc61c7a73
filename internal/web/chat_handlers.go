package web

import (
	"context"
	"errors"
	"io"
	"net/http"

	"history-mind-companion/internal/chat"
	"history-mind-companion/internal/metrics"
	"history-mind-companion/internal/security"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const turnInFlightMessage = "Một câu hỏi khác đang được xử lý"

type sendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// handleSendMessage runs a turn and answers with the resulting state. The
// turn outlives a client disconnect; progress is visible on /api/events.
func (s *Server) handleSendMessage(c *gin.Context) {
	var request sendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	message, err := security.SanitizeMessage(request.Message, security.MaxMessageLength)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	err = s.controller.SendMessage(ctx, message)
	switch {
	case errors.Is(err, chat.ErrTurnInFlight):
		c.JSON(http.StatusConflict, gin.H{
			"error": s.translator.Translate(turnInFlightMessage, s.controller.Language()),
		})
		return
	case err != nil && !errors.Is(err, chat.ErrConversationCleared):
		// already published as the state's error
		s.logger.Debug("Turn ended with error", logrus.Fields{
			"error": err.Error(),
		})
	}

	c.JSON(http.StatusOK, s.controller.State())
}

func (s *Server) handleClearMessages(c *gin.Context) {
	s.controller.ClearMessages()
	c.JSON(http.StatusOK, s.controller.State())
}

func (s *Server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.State())
}

// handleEvents streams a "state" event with the current state and then one
// per change. Slow readers skip intermediate states but always get the latest.
func (s *Server) handleEvents(c *gin.Context) {
	updates := make(chan chat.State, 1)
	cancel := s.controller.Subscribe(func(state chat.State) {
		// observers are called one at a time, so this never blocks
		select {
		case <-updates:
		default:
		}
		updates <- state
	})
	defer cancel()

	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("state", s.controller.State())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case state := <-updates:
			c.SSEvent("state", state)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
