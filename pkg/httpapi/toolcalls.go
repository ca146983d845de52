package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codesdk/execd/pkg/executor"
)

type resolveToolCallRequest struct {
	Attempt   int    `json:"attempt"`
	InputHash string `json:"input_hash"`
	Reason    string `json:"reason"`
}

func (s *Server) handleApproveToolCall(c *gin.Context) {
	var req resolveToolCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	err := s.cfg.Engine.ApproveToolCall(executor.ApproveToolCallInput{
		SessionID:  c.Param("id"),
		ToolCallID: c.Param("toolCallId"),
		Attempt:    req.Attempt,
		InputHash:  req.InputHash,
	})
	respondToolCallResolution(c, err)
}

func (s *Server) handleDenyToolCall(c *gin.Context) {
	var req resolveToolCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errJSON(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	err := s.cfg.Engine.DenyToolCall(executor.DenyToolCallInput{
		SessionID:  c.Param("id"),
		ToolCallID: c.Param("toolCallId"),
		Attempt:    req.Attempt,
		InputHash:  req.InputHash,
		Reason:     req.Reason,
	})
	respondToolCallResolution(c, err)
}

// respondToolCallResolution maps approve/deny outcomes: 200 on success, and
// 409 with code "attempt_mismatch" whenever the engine reports
// ErrNoPendingApproval (spec §8 E3). That error covers both a tool call with
// no pending entry and an (attempt, input_hash) identity mismatch, so the two
// cases are not told apart and 404 is never returned.
func respondToolCallResolution(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if errors.Is(err, executor.ErrNoPendingApproval) {
		errJSON(c, http.StatusConflict, "attempt_mismatch", err.Error())
		return
	}
	errJSON(c, http.StatusInternalServerError, "resolve_failed", err.Error())
}
