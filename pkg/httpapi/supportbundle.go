package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codesdk/execd/pkg/supportbundle"
)

func (s *Server) handleSupportBundle(c *gin.Context) {
	sessionID := c.Param("id")
	rec, ok := s.cfg.Sessions.Get(sessionID)
	if !ok {
		errJSON(c, http.StatusNotFound, "unknown_session", "no such session")
		return
	}
	if s.cfg.Artifacts == nil {
		errJSON(c, http.StatusInternalServerError, "artifacts_unavailable", "no artifact store configured")
		return
	}

	c.Header("Content-Type", "application/gzip")
	c.Header("Content-Disposition", "attachment; filename=\"support-bundle-"+sessionID+".tar.gz\"")
	c.Status(http.StatusOK)

	err := supportbundle.Write(c.Request.Context(), c.Writer, s.cfg.Events, s.cfg.Artifacts, supportbundle.Options{
		SessionID:  sessionID,
		TaskID:     c.Query("task_id"),
		ServerName: rec.Runtime,
	})
	if err != nil {
		// Headers are already flushed; nothing more to do but log via gin's
		// own error collector for the recovery middleware to observe.
		_ = c.Error(err)
	}
}
