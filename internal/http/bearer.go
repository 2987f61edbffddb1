package http

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const bearerCredentialKey = "bearer_credential"

// BearerMiddleware extrae la credencial de Authorization: Bearer y la deja en
// el contexto. No rechaza: cada servicio decide si la credencial es requerida.
func BearerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := parseBearer(c.GetHeader("Authorization")); token != "" {
			c.Set(bearerCredentialKey, token)
		}
		c.Next()
	}
}

// GetBearer devuelve la credencial bearer del request, o "".
func GetBearer(c *gin.Context) string {
	if v := c.GetString(bearerCredentialKey); v != "" {
		return v
	}
	return parseBearer(c.GetHeader("Authorization"))
}

func parseBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
