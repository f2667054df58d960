package wallet

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackvault/stackvault-backend/internal/keymgmt"
	"github.com/stackvault/stackvault-backend/internal/pkg/model"
	"github.com/stackvault/stackvault-backend/internal/pkg/reject"
	"github.com/stackvault/stackvault-backend/internal/pkg/utils"
)

type walletHandler struct {
	wallets *Service
}

func RegisterRoutes(rg *gin.RouterGroup, service *Service, auth gin.HandlerFunc) {
	handler := walletHandler{wallets: service}

	routes := rg.Group("/wallets")
	routes.POST("", auth, handler.createWallet)
	routes.GET("", auth, handler.listWallets)
	routes.GET("/:id", auth, handler.getWallet)
	routes.PUT("/:id/metadata", auth, handler.updateMetadata)
	routes.DELETE("/:id", auth, handler.deleteWallet)
}

type CreateWalletRequest struct {
	WalletType model.WalletType  `json:"walletType"`
	Metadata   map[string]string `json:"metadata"`
}

func (h walletHandler) createWallet(c *gin.Context) {
	userId := utils.GetUserId(c)

	body := CreateWalletRequest{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}
	if body.WalletType == "" {
		body.WalletType = model.WalletTypeStandard
	}

	wallet, err := h.wallets.Create(userId, body.WalletType, body.Metadata)
	if err != nil {
		problem := problemFor(err)
		c.JSON(problem.Status, problem)
		return
	}

	c.JSON(http.StatusCreated, wallet)
}

func (h walletHandler) listWallets(c *gin.Context) {
	wallets, err := h.wallets.ListByOwner(utils.GetUserId(c))
	if err != nil {
		problem := problemFor(err)
		c.JSON(problem.Status, problem)
		return
	}
	c.JSON(http.StatusOK, wallets)
}

func (h walletHandler) getWallet(c *gin.Context) {
	wallet, err := h.wallets.GetActive(c.Param("id"), utils.GetUserId(c))
	if err != nil {
		problem := problemFor(err)
		c.JSON(problem.Status, problem)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

type UpdateMetadataRequest struct {
	Metadata map[string]string `json:"metadata"`
}

func (h walletHandler) updateMetadata(c *gin.Context) {
	body := UpdateMetadataRequest{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	wallet, err := h.wallets.UpdateMetadata(c.Param("id"), utils.GetUserId(c), body.Metadata)
	if err != nil {
		problem := problemFor(err)
		c.JSON(problem.Status, problem)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

func (h walletHandler) deleteWallet(c *gin.Context) {
	if err := h.wallets.SoftDelete(c.Param("id"), utils.GetUserId(c)); err != nil {
		problem := problemFor(err)
		c.JSON(problem.Status, problem)
		return
	}
	c.Status(http.StatusNoContent)
}

func problemFor(err error) reject.Problem {
	var metadataErr *MetadataKeyError
	switch {
	case errors.Is(err, ErrNotFound):
		return reject.WalletNotFoundProblem()
	case errors.Is(err, ErrLimitReached):
		return reject.WalletLimitProblem()
	case errors.Is(err, keymgmt.ErrDecryption):
		return reject.DecryptionProblem(err)
	case errors.As(err, &metadataErr):
		return reject.InvalidMetadataProblem(metadataErr.Key)
	default:
		return reject.UnexpectedProblem(err)
	}
}
