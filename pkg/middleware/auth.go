package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/errno"
	"github.com/Patricklolilol/ffmpeg-service/pkg/restapi"
)

// AuthMiddleware verifies a bearer token signed with the configured secret.
// Endpoints stay open when auth is disabled in configuration.
func AuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		raw := c.GetHeader("Authorization")
		token := strings.TrimPrefix(raw, "Bearer ")
		if token == "" || token == raw {
			restapi.Failed(c, errno.ErrUnauthorized)
			c.Abort()
			return
		}

		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.Secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !parsed.Valid {
			restapi.Failed(c, errno.ErrUnauthorized)
			c.Abort()
			return
		}

		if cfg.Issuer != "" {
			if iss, err := parsed.Claims.GetIssuer(); err != nil || iss != cfg.Issuer {
				restapi.Failed(c, errno.ErrUnauthorized)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
