package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	summarydomain "github.com/smallbiznis/messledger/internal/summary/domain"
)

func (s *Server) GetSummary(c *gin.Context) {
	resp, err := s.summarySvc.Statement(c.Request.Context(), summarydomain.StatementRequest{
		MessID: messIDParam(c),
		Month:  strings.TrimSpace(c.Query("month")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMemberBalance(c *gin.Context) {
	resp, err := s.summarySvc.MemberBalance(c.Request.Context(), summarydomain.MemberBalanceRequest{
		MessID:   messIDParam(c),
		MemberID: strings.TrimSpace(c.Param("member_id")),
		Month:    strings.TrimSpace(c.Query("month")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
