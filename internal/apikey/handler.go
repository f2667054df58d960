package apikey

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stackvault/stackvault-backend/internal/pkg/reject"
	"github.com/stackvault/stackvault-backend/internal/pkg/utils"
)

type apiKeyHandler struct {
	keys *Service
}

func RegisterRoutes(rg *gin.RouterGroup, service *Service, auth gin.HandlerFunc) {
	handler := apiKeyHandler{keys: service}

	routes := rg.Group("/apikeys")
	routes.POST("", auth, handler.issueKey)
	routes.DELETE("/:id", auth, handler.revokeKey)
}

type IssueKeyRequest struct {
	Label string `json:"label"`
}

type IssueKeyResponse struct {
	Id     string `json:"id"`
	Prefix string `json:"prefix"`
	Label  string `json:"label,omitempty"`
	// Key is shown exactly once, at issuance.
	Key string `json:"key"`
}

func (h apiKeyHandler) issueKey(c *gin.Context) {
	body := IssueKeyRequest{}
	if err := c.BindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	plaintext, record, err := h.keys.Issue(utils.GetUserId(c), body.Label)
	if err != nil {
		problem := reject.UnexpectedProblem(err)
		c.JSON(problem.Status, problem)
		return
	}

	c.JSON(http.StatusCreated, IssueKeyResponse{
		Id:     record.Id,
		Prefix: record.Prefix,
		Label:  record.Label,
		Key:    plaintext,
	})
}

func (h apiKeyHandler) revokeKey(c *gin.Context) {
	err := h.keys.Revoke(c.Param("id"), utils.GetUserId(c))
	if errors.Is(err, ErrInvalidKey) {
		problem := reject.NewProblem().
			WithTitle("Api key not found").
			WithStatus(http.StatusNotFound).
			WithCode("error.apikey.not-found").
			Build()
		c.JSON(problem.Status, problem)
		return
	}
	if err != nil {
		problem := reject.UnexpectedProblem(err)
		c.JSON(problem.Status, problem)
		return
	}
	c.Status(http.StatusNoContent)
}
