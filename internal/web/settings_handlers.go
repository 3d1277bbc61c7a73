package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleGetSettings reports the presentation settings the core runs with.
// They come from configuration and are read-only here.
func (s *Server) handleGetSettings(c *gin.Context) {
	languages := make([]string, 0, 2)
	for _, lang := range s.translator.AvailableLanguages() {
		languages = append(languages, string(lang))
	}

	c.JSON(http.StatusOK, gin.H{
		"locale":    s.config.Presentation.Locale,
		"theme":     s.config.Presentation.Theme,
		"languages": languages,
		"version":   s.version,
	})
}
