package social

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackvault/stackvault-backend/internal/pkg/model"
	"github.com/stackvault/stackvault-backend/internal/pkg/reject"
	"github.com/stackvault/stackvault-backend/internal/pkg/utils"
	"github.com/stackvault/stackvault-backend/internal/wallet"
)

type socialHandler struct {
	social *Service
}

func RegisterRoutes(rg *gin.RouterGroup, service *Service, auth gin.HandlerFunc) {
	handler := socialHandler{social: service}

	routes := rg.Group("/social")
	routes.POST("/bind", auth, handler.bind)
}

type BindRequest struct {
	Provider     model.SocialProvider `json:"provider" binding:"required"`
	ProviderId   string               `json:"providerId" binding:"required"`
	Verified     bool                 `json:"verified"`
	ProviderData map[string]string    `json:"providerData"`
}

func (h socialHandler) bind(c *gin.Context) {
	body := BindRequest{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	bound, err := h.social.BindOrCreate(
		utils.GetUserId(c),
		body.Provider,
		body.ProviderId,
		body.Verified,
		body.ProviderData,
	)
	if err != nil {
		problem := problemFor(err, string(body.Provider))
		c.JSON(problem.Status, problem)
		return
	}

	c.JSON(http.StatusOK, bound)
}

func problemFor(err error, provider string) reject.Problem {
	switch {
	case errors.Is(err, ErrInvalidProvider):
		return reject.InvalidProviderProblem(provider)
	case errors.Is(err, ErrProviderNotVerified):
		return reject.ProviderNotVerifiedProblem()
	case errors.Is(err, ErrAlreadyBound):
		return reject.NewProblem().
			WithTitle("Identity already bound to another user").
			WithStatus(http.StatusConflict).
			WithCode("error.social.wallet-exists").
			Build()
	case errors.Is(err, wallet.ErrLimitReached):
		return reject.WalletLimitProblem()
	default:
		return reject.UnexpectedProblem(err)
	}
}
