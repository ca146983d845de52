package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codesdk/execd/pkg/event"
	"github.com/codesdk/execd/pkg/session"
)

const heartbeatInterval = 15 * time.Second

func (s *Server) appendSessionCreated(c *gin.Context, rec *session.Record) {
	_, _ = s.cfg.Events.Append(c.Request.Context(), rec.ID, event.NewEventFields{
		Type:  event.TypeSessionCreated,
		Trace: event.Trace{SessionID: rec.ID},
		Runtime: event.Runtime{
			Name:             rec.Runtime,
			Model:            rec.Model,
			RuntimeSessionID: rec.RuntimeSessionID,
		},
	})
}

func (s *Server) handleSessionEvents(c *gin.Context) {
	sessionID := c.Param("id")
	if _, ok := s.cfg.Sessions.Get(sessionID); !ok {
		errJSON(c, http.StatusNotFound, "unknown_session", "no such session")
		return
	}

	afterSeq := int64(0)
	if v := c.Query("after_seq"); v != "" {
		afterSeq = parseSeq(v)
	} else if v := c.Query("from_seq"); v != "" {
		afterSeq = parseSeq(v)
	}

	wantsStream := c.Query("stream") == "1" || c.GetHeader("Accept") == "text/event-stream"
	if !wantsStream {
		limit := atoiOr(c.Query("limit"), 0)
		events, err := s.cfg.Events.List(c.Request.Context(), sessionID, afterSeq, limit)
		if err != nil {
			errJSON(c, http.StatusInternalServerError, "list_failed", err.Error())
			return
		}
		nextSeq := afterSeq
		if len(events) > 0 {
			nextSeq = events[len(events)-1].Seq
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "next_seq": nextSeq})
		return
	}

	s.streamEvents(c, sessionID, afterSeq)
}

// streamEvents implements the SSE framing of spec §6.2: a ready frame,
// then one data frame per event, with a heartbeat comment every 15s.
func (s *Server) streamEvents(c *gin.Context, sessionID string, fromSeq int64) {
	if !s.acquireSSESlot() {
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.BackpressureDrop("sse_backpressure")
		}
		errJSON(c, http.StatusTooManyRequests, "sse_backpressure", "too many concurrent event streams")
		return
	}
	defer s.releaseSSESlot()

	ctx := c.Request.Context()
	ch, err := s.cfg.Events.Subscribe(ctx, sessionID, fromSeq)
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "subscribe_failed", err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SSEClientConnected()
		defer s.cfg.Metrics.SSEClientDisconnected()
	}

	flusher, _ := c.Writer.(http.Flusher)
	write := func(frame string) bool {
		if _, err := c.Writer.Write([]byte(frame)); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	if !write(fmt.Sprintf("event: ready\ndata: {\"session_id\": %q}\n\n", sessionID)) {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !write(":heartbeat\n\n") {
				return
			}
		case evt, ok := <-ch:
			if !ok {
				return
			}
			body, err := event.SerializeEvent(evt)
			if err != nil {
				continue
			}
			if !write(fmt.Sprintf("data: %s\n", body)) {
				return
			}
		}
	}
}

func parseSeq(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
