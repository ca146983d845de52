package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codesdk/execd/pkg/artifact"
)

var errNotFound = errors.New("httpapi: not found")

func (s *Server) handleGetArtifact(c *gin.Context) {
	rec, err := s.lookupArtifact(c)
	if err != nil || rec == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"artifact_id":  rec.ArtifactID,
		"content_type": rec.ContentType,
		"size_bytes":   rec.SizeBytes,
		"content_hash": rec.ContentHash,
		"name":         rec.Name,
		"created_at":   rec.CreatedAt,
	})
}

func (s *Server) handleDownloadArtifact(c *gin.Context) {
	rec, err := s.lookupArtifact(c)
	if err != nil || rec == nil {
		return
	}
	contentType := rec.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, rec.Bytes)
}

// lookupArtifact writes the 404/500 response itself and returns (nil, err)
// when the caller should stop; the error is non-nil only to distinguish
// "already responded" from "record obtained", its text is not used.
func (s *Server) lookupArtifact(c *gin.Context) (*artifact.Record, error) {
	record, err := s.cfg.Artifacts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		errJSON(c, http.StatusInternalServerError, "get_artifact_failed", err.Error())
		return nil, err
	}
	if record == nil {
		errJSON(c, http.StatusNotFound, "unknown_artifact", "no such artifact")
		return nil, errNotFound
	}
	return record, nil
}
