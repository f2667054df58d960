package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/stackvault/stackvault-backend/internal/pkg/reject"
	"github.com/stackvault/stackvault-backend/internal/pkg/utils"
)

const (
	accessTokenRequired string = "error.token.required"
	accessTokenInvalid  string = "error.token.invalid"
)

// BearerAuth verifies the HS256 session token issued by the auth layer and
// puts the subject user id on the request context.
func BearerAuth(jwtSecret string) gin.HandlerFunc {
	return func(context *gin.Context) {
		authHeader := context.Request.Header.Get("Authorization")
		tokenValue := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if tokenValue == "" {
			log.Warn().Msg("Token missing: 401")
			context.AbortWithStatusJSON(
				http.StatusUnauthorized,
				reject.NewProblem().
					WithTitle("Missing access token").
					WithStatus(http.StatusUnauthorized).
					WithCode(accessTokenRequired).
					Build())
			return
		}

		token, err := jwt.Parse(tokenValue, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			log.Warn().Err(err).Msg("Error verifying token")
			context.AbortWithStatusJSON(
				http.StatusUnauthorized,
				reject.NewProblem().
					WithTitle("Cannot verify access token").
					WithStatus(http.StatusUnauthorized).
					WithCode(accessTokenInvalid).
					Build())
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || subject == "" {
			context.AbortWithStatusJSON(
				http.StatusUnauthorized,
				reject.NewProblem().
					WithTitle("Cannot verify access token").
					WithStatus(http.StatusUnauthorized).
					WithCode(accessTokenInvalid).
					Build())
			return
		}

		utils.SetUserIdCtx(subject, context)
	}
}
