package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
)

func (s *Server) CreateMess(c *gin.Context) {
	var req messdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messSvc.Create(c.Request.Context(), messdomain.CreateRequest{
		Name:         strings.TrimSpace(req.Name),
		CurrentMonth: strings.TrimSpace(req.CurrentMonth),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetMess(c *gin.Context) {
	resp, err := s.messSvc.Get(c.Request.Context(), messIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetMessStatus(c *gin.Context) {
	var req messdomain.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messSvc.SetStatus(c.Request.Context(), messdomain.SetStatusRequest{
		MessID: messIDParam(c),
		Status: messdomain.MessStatus(strings.ToLower(strings.TrimSpace(string(req.Status)))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddMember(c *gin.Context) {
	var req messdomain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.messSvc.AddMember(c.Request.Context(), messdomain.AddMemberRequest{
		MessID: messIDParam(c),
		Name:   strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListMembers(c *gin.Context) {
	active, err := parseOptionalBool(c.Query("active"))
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	resp, err := s.messSvc.ListMembers(c.Request.Context(), messIDParam(c), active != nil && *active)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeactivateMember(c *gin.Context) {
	resp, err := s.messSvc.DeactivateMember(c.Request.Context(), messIDParam(c), strings.TrimSpace(c.Param("member_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
