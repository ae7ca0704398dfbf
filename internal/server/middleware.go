package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	messdomain "github.com/smallbiznis/messledger/internal/mess/domain"
)

const contextMealTypeKey = "meal_type"

// MessIDRequired rejects requests whose :id is not a snowflake id before any
// handler touches the database.
func MessIDRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := snowflake.ParseString(strings.TrimSpace(c.Param("id"))); err != nil {
			AbortWithError(c, messdomain.ErrInvalidMess)
			return
		}
		c.Next()
	}
}

func messIDParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}
