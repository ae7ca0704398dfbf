package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	mealdomain "github.com/smallbiznis/messledger/internal/meal/domain"
)

func (s *Server) AdjustMeal(c *gin.Context) {
	var req mealdomain.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	mealType := mealdomain.MealType(strings.ToLower(strings.TrimSpace(string(req.MealType))))
	c.Set(contextMealTypeKey, string(mealType))

	resp, err := s.mealSvc.Adjust(c.Request.Context(), mealdomain.AdjustRequest{
		MessID:   messIDParam(c),
		MemberID: strings.TrimSpace(req.MemberID),
		Date:     strings.TrimSpace(req.Date),
		MealType: mealType,
		Delta:    req.Delta,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListMeals(c *gin.Context) {
	resp, err := s.mealSvc.List(c.Request.Context(), mealdomain.ListRequest{
		MessID: messIDParam(c),
		Month:  strings.TrimSpace(c.Query("month")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
