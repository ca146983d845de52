package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleRoot(c *gin.Context) {
	names := make([]string, 0, len(s.cfg.Adapters))
	for name := range s.cfg.Adapters {
		names = append(names, name)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": "execd", "runtimes": names})
}

func (s *Server) handleHealth(c *gin.Context) {
	a, name, ok := s.adapterFor(c.Query("runtime"))
	if !ok {
		errJSON(c, http.StatusNotFound, "unknown_runtime", "no such runtime registered")
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	auth, err := a.AuthStatus(ctx, "")
	resp := gin.H{
		"ok":           err == nil,
		"runtime":      name,
		"time":         time.Now().UTC(),
		"capabilities": a.Capabilities(),
	}
	if err == nil {
		resp["auth"] = auth
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCapabilities(c *gin.Context) {
	a, _, ok := s.adapterFor(c.Query("runtime"))
	if !ok {
		errJSON(c, http.StatusNotFound, "unknown_runtime", "no such runtime registered")
		return
	}
	c.JSON(http.StatusOK, a.Capabilities())
}

func (s *Server) handleAuthStatus(c *gin.Context) {
	a, _, ok := s.adapterFor(c.Query("runtime"))
	if !ok {
		errJSON(c, http.StatusNotFound, "unknown_runtime", "no such runtime registered")
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	auth, err := a.AuthStatus(ctx, c.Query("namespace"))
	if err != nil {
		errJSON(c, http.StatusBadGateway, "auth_status_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, auth)
}

func (s *Server) handleMetrics() gin.HandlerFunc {
	handler := metricsHandler()
	return func(c *gin.Context) { handler.ServeHTTP(c.Writer, c.Request) }
}
