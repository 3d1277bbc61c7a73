package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"history-mind-companion/internal/logger"
	"history-mind-companion/internal/security"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGetLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	failedOnly, _ := strconv.ParseBool(c.DefaultQuery("failed_only", "false"))

	if requestID := c.Query("request_id"); requestID != "" {
		logs, err := s.logger.GetLogsByRequestID(requestID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"logs":  logs,
			"total": len(logs),
		})
		return
	}

	logs, total, err := s.logger.GetLogs(limit, offset, failedOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
	})
}

func (s *Server) handleGetLogStats(c *gin.Context) {
	stats, err := s.logger.GetStats()
	if errors.Is(err, logger.ErrStorageUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Turn log storage is disabled"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute log stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleCleanupLogs deletes turn logs older than the given days; 0 deletes all
func (s *Server) handleCleanupLogs(c *gin.Context) {
	var request struct {
		Days *int `json:"days" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	days := *request.Days
	if err := security.ValidateLogDays(days); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deletedCount, err := s.logger.CleanupLogsByDays(days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cleanup logs: " + err.Error()})
		return
	}

	message := fmt.Sprintf("Successfully deleted all %d log entries", deletedCount)
	if days > 0 {
		message = fmt.Sprintf("Successfully deleted %d log entries older than %d days", deletedCount, days)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       message,
		"deleted_count": deletedCount,
	})
}
