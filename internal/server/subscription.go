package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/messledger/internal/subscription/domain"
)

func (s *Server) ApproveSubscription(c *gin.Context) {
	var req subscriptiondomain.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.subscriptionSvc.Approve(c.Request.Context(), subscriptiondomain.ApproveRequest{
		MessID:    messIDParam(c),
		StartDate: strings.TrimSpace(req.StartDate),
		EndDate:   strings.TrimSpace(req.EndDate),
		Reference: strings.TrimSpace(req.Reference),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	resp, err := s.subscriptionSvc.List(c.Request.Context(), messIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCurrentSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Current(c.Request.Context(), messIDParam(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), messIDParam(c), strings.TrimSpace(c.Param("subscription_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetWindow reports the editable date range of a mess. Callers can ask which
// of a set of months are editable and whether one date would be accepted.
func (s *Server) GetWindow(c *gin.Context) {
	resp, err := s.subscriptionSvc.Window(c.Request.Context(), messIDParam(c), subscriptiondomain.WindowRequest{
		Months: parseList(c.Query("months")),
		Date:   strings.TrimSpace(c.Query("date")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
