package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/annel0/swagaria-server/internal/auth"
)

const claimsKey = "claims"

var (
	errNoToken        = errors.New("отсутствует токен авторизации")
	errBadTokenFormat = errors.New("неверный формат токена")
)

// bearerToken достаёт токен из заголовка "Authorization: Bearer <token>"
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errNoToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", errBadTokenFormat
	}
	return token, nil
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: message})
}

// requireAdmin пропускает к административным маршрутам только валидный
// токен с флагом администратора. Отказы пишутся в лог с trace-ID запроса.
func (rs *RestServer) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			rs.logger.Debug("Отказ в доступе к %s: %v", c.FullPath(), err)
			abortJSON(c, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := rs.tokens.Validate(token)
		if err != nil {
			rs.logger.Warn("🔒 Недействительный токен для %s (ip=%s): %v", c.FullPath(), c.ClientIP(), err)
			abortJSON(c, http.StatusUnauthorized, "Недействительный токен")
			return
		}
		if !claims.IsAdmin {
			rs.logger.Warn("🔒 %s без прав администратора обратился к %s", claims.Username, c.FullPath())
			abortJSON(c, http.StatusForbidden, "Недостаточно прав доступа")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// adminName имя администратора из проверенного токена
func adminName(c *gin.Context) string {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims.Username
		}
	}
	return ""
}
