package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/executor"
	"github.com/codesdk/execd/pkg/policy"
)

type startTaskRequest struct {
	TaskID         string                  `json:"taskId"`
	Messages       []taskMessage           `json:"messages"`
	PermissionMode string                  `json:"permissionMode"`
	ToolManifest   []adapterToolPermission `json:"toolManifest"`
}

type taskMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type adapterToolPermission struct {
	Name       string          `json:"name"`
	Permission string          `json:"permission"`
	ArgsSchema json.RawMessage `json:"argsSchema,omitempty"`
}

func (s *Server) handleStartTask(c *gin.Context) {
	sessionID := c.Param("id")
	rec, ok := s.cfg.Sessions.Get(sessionID)
	if !ok {
		errJSON(c, http.StatusNotFound, "unknown_session", "no such session")
		return
	}

	var req startTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(req.Messages) == 0 {
		errJSON(c, http.StatusBadRequest, "missing_messages", "messages is required")
		return
	}

	manifests := make([]adapter.ToolManifest, len(req.ToolManifest))
	for i, t := range req.ToolManifest {
		manifests[i] = adapter.ToolManifest{Name: t.Name, Permission: t.Permission, ArgsSchema: t.ArgsSchema}
	}
	// spec EXPANSION 4.4.1: an invalid args_schema fails the task with
	// INVALID_EVENT before the adapter is even started.
	if _, err := adapter.NewManifestValidator(manifests); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	if !s.acquireInflightSlot() {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.BackpressureDrop("inflight")
		}
		errJSON(c, http.StatusTooManyRequests, "inflight_limit", "too many tasks running")
		return
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	permMode := policy.Mode(req.PermissionMode)
	if permMode == "" {
		permMode = rec.PermissionMode
	}

	toolPermissions := make(map[string]policy.ToolPermission, len(req.ToolManifest))
	for _, t := range req.ToolManifest {
		toolPermissions[t.Name] = policy.ToolPermission(t.Permission)
	}

	prompt := ""
	for _, m := range req.Messages {
		prompt += m.Content + "\n"
	}

	h, err := s.cfg.Engine.StartTask(c.Request.Context(), executor.StartTaskInput{
		SessionID:        sessionID,
		TaskID:           taskID,
		AdapterName:      rec.Runtime,
		RuntimeSessionID: rec.RuntimeSessionID,
		Namespace:        rec.CredentialNamespace,
		Prompt:           prompt,
		Model:            rec.Model,
		WorkDir:          rec.CWD,
		PermissionMode:   permMode,
		ToolPermissions:  toolPermissions,
	})
	if err != nil {
		s.releaseInflightSlot()
		errJSON(c, http.StatusInternalServerError, "start_task_failed", err.Error())
		return
	}
	go func() {
		<-h.Done()
		s.releaseInflightSlot()
	}()

	c.JSON(http.StatusAccepted, gin.H{"session_id": sessionID, "task_id": taskID, "status": "started"})
}

func (s *Server) handleGetTask(c *gin.Context) {
	sessionID := c.Param("id")
	taskID := c.Param("taskId")

	events, err := s.cfg.Events.List(c.Request.Context(), sessionID, 0, 0)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	status := "unknown"
	var lastSeq int64
	seen := false
	for _, evt := range events {
		if evt.Trace.TaskID != taskID {
			continue
		}
		seen = true
		lastSeq = evt.Seq
		switch evt.Type {
		case event.TypeTaskCompleted:
			status = "completed"
		case event.TypeTaskFailed:
			status = "failed"
		case event.TypeTaskStopped:
			status = "stopped"
		default:
			if status == "unknown" {
				status = "running"
			}
		}
	}
	if !seen {
		errJSON(c, http.StatusNotFound, "unknown_task", "no events recorded for this task")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "last_seq": lastSeq})
}

func (s *Server) handleStopTask(c *gin.Context) {
	taskID := c.Param("taskId")
	if err := s.cfg.Engine.Stop(taskID, "stopped via http api"); err != nil {
		errJSON(c, http.StatusNotFound, "unknown_task", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "task_id": taskID})
}
