package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const userIdCtxKey string = "userId"

func GetUserId(ctx *gin.Context) string {
	value, exists := ctx.Get(userIdCtxKey)
	if !exists {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return ""
	}
	return value.(string)
}

func SetUserIdCtx(userId string, ctx *gin.Context) {
	ctx.Set(userIdCtxKey, userId)
}
