package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/policy"
	"github.com/codesdk/execd/pkg/session"
)

type createSessionRequest struct {
	Runtime             string            `json:"runtime"`
	CredentialNamespace string            `json:"credentialNamespace"`
	IsolationLevel      string            `json:"isolationLevel"`
	IsolationMode       string            `json:"isolationMode"`
	CWD                 string            `json:"cwd"`
	Env                 map[string]string `json:"env"`
	Model               string            `json:"model"`
	PermissionMode      string            `json:"permissionMode"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		errJSON(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	a, runtimeName, ok := s.adapterFor(req.Runtime)
	if !ok {
		errJSON(c, http.StatusBadRequest, "unknown_runtime", "no such runtime registered")
		return
	}

	permMode := policy.Mode(req.PermissionMode)
	if permMode == "" {
		permMode = s.cfg.DefaultPermissionMode
	}

	sessionUUID, err := uuid.NewV7()
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "id_generation_failed", err.Error())
		return
	}
	sessionID := sessionUUID.String()

	cwd := req.CWD
	if cwd == "" {
		cwd = s.cfg.DefaultWorkspaceRoot
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	runtimeSessionID, err := a.CreateSession(ctx, adapter.CreateSessionRequest{
		Namespace: req.CredentialNamespace,
		Model:     req.Model,
		Env:       req.Env,
	})
	if err != nil {
		errJSON(c, http.StatusBadGateway, "create_session_failed", err.Error())
		return
	}

	rec := &session.Record{
		ID:                  sessionID,
		Runtime:             runtimeName,
		RuntimeSessionID:    runtimeSessionID,
		CredentialNamespace: req.CredentialNamespace,
		Isolation:           session.Isolation{Level: req.IsolationLevel, Mode: req.IsolationMode},
		CWD:                 cwd,
		Env:                 req.Env,
		Model:               req.Model,
		PermissionMode:      permMode,
		CreatedAt:           time.Now().UTC(),
	}
	s.cfg.Sessions.Put(rec)

	s.appendSessionCreated(c, rec)

	c.JSON(http.StatusCreated, gin.H{
		"session_id":         rec.ID,
		"runtime":            rec.Runtime,
		"runtime_session_id": rec.RuntimeSessionID,
		"created_at":         rec.CreatedAt,
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	rec, ok := s.cfg.Sessions.Get(c.Param("id"))
	if !ok {
		errJSON(c, http.StatusNotFound, "unknown_session", "no such session")
		return
	}
	c.JSON(http.StatusOK, sessionSummary(rec))
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit = atoiOr(v, 0)
	}
	records := s.cfg.Sessions.List(c.Query("after"), limit)

	summaries := make([]gin.H, 0, len(records))
	nextAfter := ""
	for _, rec := range records {
		summaries = append(summaries, sessionSummary(rec))
		nextAfter = rec.ID
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries, "next_after": nextAfter})
}

func sessionSummary(rec *session.Record) gin.H {
	return gin.H{
		"session_id":           rec.ID,
		"runtime":              rec.Runtime,
		"runtime_session_id":   rec.RuntimeSessionID,
		"credential_namespace": rec.CredentialNamespace,
		"model":                rec.Model,
		"permission_mode":      rec.PermissionMode,
		"created_at":           rec.CreatedAt,
	}
}

func atoiOr(s string, fallback int) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	if n == 0 && s != "0" {
		return fallback
	}
	return n
}
