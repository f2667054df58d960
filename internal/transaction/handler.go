package transaction

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackvault/stackvault-backend/internal/keymgmt"
	"github.com/stackvault/stackvault-backend/internal/pkg/reject"
	"github.com/stackvault/stackvault-backend/internal/pkg/utils"
	"github.com/stackvault/stackvault-backend/internal/wallet"
)

type transactionHandler struct {
	transactions *Service
}

func RegisterRoutes(rg *gin.RouterGroup, service *Service, auth gin.HandlerFunc) {
	handler := transactionHandler{transactions: service}

	routes := rg.Group("/transactions")
	routes.POST("/transfer", auth, handler.transfer)
	routes.GET("/:id", auth, handler.getTransaction)
	routes.GET("/wallet/:walletId", auth, handler.listByWallet)
	routes.POST("/status/:txId/refresh", auth, handler.refreshStatus)
}

type TransferRequest struct {
	WalletId  string `json:"walletId" binding:"required"`
	ToAddress string `json:"toAddress" binding:"required"`
	Amount    uint64 `json:"amount" binding:"required"` // whole STX
	Memo      string `json:"memo"`
}

func (h transactionHandler) transfer(c *gin.Context) {
	body := TransferRequest{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	record, err := h.transactions.Transfer(
		c.Request.Context(),
		body.WalletId,
		utils.GetUserId(c),
		body.ToAddress,
		body.Amount,
		body.Memo,
	)
	if err != nil {
		problem := problemFor(err, body.ToAddress)
		c.JSON(problem.Status, problem)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (h transactionHandler) getTransaction(c *gin.Context) {
	record, err := h.transactions.Get(c.Param("id"), utils.GetUserId(c))
	if err != nil {
		problem := problemFor(err, "")
		c.JSON(problem.Status, problem)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h transactionHandler) listByWallet(c *gin.Context) {
	records, err := h.transactions.ListByWallet(c.Param("walletId"), utils.GetUserId(c))
	if err != nil {
		problem := problemFor(err, "")
		c.JSON(problem.Status, problem)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h transactionHandler) refreshStatus(c *gin.Context) {
	status, err := h.transactions.RefreshStatus(c.Request.Context(), c.Param("txId"))
	if err != nil {
		problem := problemFor(err, "")
		c.JSON(problem.Status, problem)
		return
	}
	c.JSON(http.StatusOK, gin.H{"txId": c.Param("txId"), "status": status})
}

func problemFor(err error, recipient string) reject.Problem {
	var broadcastErr *BroadcastError
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		return reject.WalletNotFoundProblem()
	case errors.Is(err, ErrRecordNotFound):
		return reject.TransactionNotFoundProblem()
	case errors.Is(err, keymgmt.ErrDecryption):
		return reject.DecryptionProblem(err)
	case errors.Is(err, ErrNonceFetch):
		return reject.NonceFetchProblem(err)
	case errors.Is(err, keymgmt.ErrInvalidAddress):
		return reject.InvalidRecipientProblem(recipient)
	case errors.As(err, &broadcastErr):
		return reject.BroadcastProblem(broadcastErr.Reason)
	default:
		return reject.UnexpectedProblem(err)
	}
}
