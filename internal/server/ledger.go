package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/messledger/internal/ledger/domain"
)

func (s *Server) RecordBazar(c *gin.Context) {
	var req ledgerdomain.RecordBazarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.RecordBazar(c.Request.Context(), ledgerdomain.RecordBazarRequest{
		MessID:      messIDParam(c),
		MemberID:    strings.TrimSpace(req.MemberID),
		Date:        strings.TrimSpace(req.Date),
		Cost:        strings.TrimSpace(req.Cost),
		Description: strings.TrimSpace(req.Description),
		ClientRef:   strings.TrimSpace(req.ClientRef),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListBazar(c *gin.Context) {
	resp, err := s.ledgerSvc.ListBazar(c.Request.Context(), ledgerListRequest(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordDeposit(c *gin.Context) {
	var req ledgerdomain.RecordDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.RecordDeposit(c.Request.Context(), ledgerdomain.RecordDepositRequest{
		MessID:    messIDParam(c),
		MemberID:  strings.TrimSpace(req.MemberID),
		Date:      strings.TrimSpace(req.Date),
		Amount:    strings.TrimSpace(req.Amount),
		Note:      strings.TrimSpace(req.Note),
		ClientRef: strings.TrimSpace(req.ClientRef),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListDeposits(c *gin.Context) {
	resp, err := s.ledgerSvc.ListDeposits(c.Request.Context(), ledgerListRequest(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RecordAdditionalCost(c *gin.Context) {
	var req ledgerdomain.RecordAdditionalCostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ledgerSvc.RecordAdditionalCost(c.Request.Context(), ledgerdomain.RecordAdditionalCostRequest{
		MessID:      messIDParam(c),
		Date:        strings.TrimSpace(req.Date),
		Description: strings.TrimSpace(req.Description),
		Amount:      strings.TrimSpace(req.Amount),
		ClientRef:   strings.TrimSpace(req.ClientRef),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListAdditionalCosts(c *gin.Context) {
	resp, err := s.ledgerSvc.ListAdditionalCosts(c.Request.Context(), ledgerListRequest(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func ledgerListRequest(c *gin.Context) ledgerdomain.ListRequest {
	return ledgerdomain.ListRequest{
		MessID: messIDParam(c),
		Month:  strings.TrimSpace(c.Query("month")),
	}
}
