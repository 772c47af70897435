package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/examsphere/exam-portal-api/internal/middleware"
	"github.com/examsphere/exam-portal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentClaims(c)
}

// collegeScope returns the tenant the caller may see: platform admins may
// pass ?college_id= to inspect any tenant, everyone else is pinned to
// their own.
func collegeScope(c *gin.Context, claims *models.JWTClaims) string {
	if claims == nil {
		return ""
	}
	if claims.Role == models.RoleSuperAdmin {
		return c.Query("college_id")
	}
	if claims.CollegeID != nil {
		return *claims.CollegeID
	}
	return ""
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func queryBool(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

func pageParams(c *gin.Context) (int, int) {
	return queryInt(c, "page", 1), queryInt(c, "page_size", 20)
}
