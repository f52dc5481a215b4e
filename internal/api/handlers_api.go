package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCities(c *gin.Context) {
	cities, err := s.client.Cities(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cities)
}

func (s *Server) handleColumns(c *gin.Context) {
	cols, err := s.client.Columns(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": cols})
}

func (s *Server) handleLast(c *gin.Context) {
	res, ok := s.guard.Last(c.Param("page"), session(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": errorPrefix + "brak wyników"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleGetUIState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sidebarCollapsed": s.ui.SidebarCollapsed()})
}

func (s *Server) handlePutUIState(c *gin.Context) {
	var body uiStateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	s.ui.SetSidebarCollapsed(*body.SidebarCollapsed)
	c.JSON(http.StatusOK, gin.H{"sidebarCollapsed": *body.SidebarCollapsed})
}

func (s *Server) handleExports(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	exports, err := s.store.ListExports(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list exports", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorPrefix + "nie udało się pobrać historii eksportu"})
		return
	}
	c.JSON(http.StatusOK, exports)
}
