package handlers

import (
	"strconv"

	"tellme/internal/api/middleware"
	"tellme/internal/core"

	"github.com/gin-gonic/gin"
)

// abortDetail answers with a {"detail": ...} body
func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// abortField answers with a field validation error: {"field": ["message"]}
func abortField(c *gin.Context, status int, field, message string) {
	c.AbortWithStatusJSON(status, gin.H{field: []string{message}})
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(middleware.UserIDKey)
}

// parsePK parses a primary key; zero means absent or malformed
func parsePK(id core.ID) int64 {
	n, err := strconv.ParseInt(id.String(), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func formatPK(id int64) string {
	return strconv.FormatInt(id, 10)
}
