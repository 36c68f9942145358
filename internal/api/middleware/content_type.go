package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContentType accepts JSON or multipart bodies on POST, PUT and PATCH.
// Bodiless POSTs (payment initialization) pass through.
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			contentType := c.GetHeader("Content-Type")
			if c.Request.ContentLength == 0 && contentType == "" {
				break
			}
			if !strings.Contains(contentType, "application/json") && !strings.Contains(contentType, "multipart/form-data") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"detail": "Unsupported media type \"" + contentType + "\" in request.",
					"code":   "unsupported_media_type",
				})
				return
			}
		}
		c.Next()
	}
}
