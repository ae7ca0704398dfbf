package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	archivedomain "github.com/smallbiznis/messledger/internal/archive/domain"
)

// CreateArchive closes a month. An empty body archives the open month. A
// month that is already archived returns the stored snapshot with 200.
func (s *Server) CreateArchive(c *gin.Context) {
	var req archivedomain.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.archiveSvc.Archive(c.Request.Context(), archivedomain.ArchiveRequest{
		MessID:  messIDParam(c),
		Month:   strings.TrimSpace(req.Month),
		Trigger: archivedomain.TriggerAPI,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) ListArchives(c *gin.Context) {
	limit, err := parseOptionalInt(c.Query("limit"))
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	req := archivedomain.ListRequest{MessID: messIDParam(c)}
	if limit != nil {
		req.Limit = *limit
	}
	resp, err := s.archiveSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetArchive(c *gin.Context) {
	resp, err := s.archiveSvc.Get(c.Request.Context(), messIDParam(c), strings.TrimSpace(c.Param("month")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VerifyArchive(c *gin.Context) {
	resp, err := s.archiveSvc.Verify(c.Request.Context(), messIDParam(c), strings.TrimSpace(c.Param("month")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
