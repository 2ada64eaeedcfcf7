package api

import (
	"context"
	defError "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"echodocs-server/internal/auth"
	"echodocs-server/internal/cache"
	"echodocs-server/internal/contrib"
	"echodocs-server/internal/engine"
	"echodocs-server/internal/errors"
	"echodocs-server/internal/session"

	"github.com/gin-gonic/gin"
)

// Service is the synchronous surface the handlers expose over HTTP.
type Service interface {
	ForkReadOnly(content string) string
	UpdateFork(ctx context.Context, forkID, content string) (session.State, error)
	PromoteShared(content string) string
	State(docID string) (session.State, error)
	History(docID string) ([]session.HistorySnapshot, error)
	Operations(docID string) ([]session.AppliedOperation, error)
	Contributions(docID string) ([]contrib.Tally, error)
	CopyContent(docID string) (string, error)
}

type Handler struct {
	service Service
	tokens  *auth.ForkTokens
	cache   *cache.Cache
}

func NewHandler(service Service, tokens *auth.ForkTokens, cache *cache.Cache) *Handler {
	return &Handler{service: service, tokens: tokens, cache: cache}
}

func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/share-personal", h.SharePersonal)
	api.POST("/share-personal/update", h.UpdateSharedView)
	api.POST("/create-shared-from-personal", h.CreateSharedFromPersonal)
	api.GET("/documents/:id", h.ShowDocument)
	api.GET("/documents/:id/copy", h.CopyDocument)
	api.GET("/history/:id", h.ShowHistory)
	api.GET("/ops/:id", h.ShowOperations)
	api.GET("/doc/:id/contributions", h.ShowContributions)
}

type SharePersonalRequest struct {
	DocID   string `json:"docId"`
	Content string `json:"content"`
}

// SharePersonal forks a personal document into a read-only live view. The
// response carries the owner token that gates future pushes into the view.
func (h *Handler) SharePersonal(c *gin.Context) {
	var form SharePersonalRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	viewID := h.service.ForkReadOnly(form.Content)

	ownerToken, err := h.tokens.Issue(viewID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": viewID, "ownerToken": ownerToken})
}

type UpdateSharedViewRequest struct {
	ID      string `json:"id" binding:"required"`
	Content string `json:"content"`
}

// UpdateSharedView is the privileged full-content save into a read-only fork.
func (h *Handler) UpdateSharedView(c *gin.Context) {
	var form UpdateSharedViewRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	token := bearerToken(c)
	if token == "" {
		c.Error(errors.Unauthorized("Owner token is not found!", nil))
		return
	}
	if err := h.tokens.Verify(token, form.ID); err != nil {
		c.Error(errors.Unauthorized("Invalid owner token!", err))
		return
	}

	st, err := h.service.UpdateFork(c.Request.Context(), form.ID, form.Content)
	if err != nil {
		if defError.Is(err, engine.ErrUnknownFork) {
			c.Error(errors.NotFound("not_found", err))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "version": st.Version})
}

type CreateSharedRequest struct {
	Content string `json:"content"`
}

// CreateSharedFromPersonal promotes personal content into an independent
// shared document.
func (h *Handler) CreateSharedFromPersonal(c *gin.Context) {
	var form CreateSharedRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	sharedID := h.service.PromoteShared(form.Content)
	c.JSON(http.StatusOK, gin.H{"id": sharedID})
}

func (h *Handler) ShowDocument(c *gin.Context) {
	docID := c.Param("id")

	st, err := h.service.State(docID)
	if err != nil {
		c.Error(errors.NotFound("not_found", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       docID,
		"content":  st.Content,
		"version":  st.Version,
		"readOnly": st.ReadOnly,
	})
}

func (h *Handler) CopyDocument(c *gin.Context) {
	docID := c.Param("id")

	content, err := h.service.CopyContent(docID)
	if err != nil {
		c.Error(errors.NotFound("not_found", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": content})
}

type historyResponse struct {
	History []session.HistorySnapshot `json:"history"`
}

func (h *Handler) ShowHistory(c *gin.Context) {
	docID := c.Param("id")

	st, err := h.service.State(docID)
	if err != nil {
		c.Error(errors.NotFound("not_found", err))
		return
	}

	// history only grows on version bumps, so a version-scoped key never
	// serves a stale timeline
	cacheKey := fmt.Sprintf("hist:%s:v:%d", docID, st.Version)

	var cached historyResponse
	if found, _ := h.cache.Get(c.Request.Context(), cacheKey, &cached); found {
		c.JSON(http.StatusOK, cached)
		return
	}

	snaps, err := h.service.History(docID)
	if err != nil {
		c.Error(errors.NotFound("not_found", err))
		return
	}

	result := historyResponse{History: snaps}
	go h.cache.Set(context.Background(), cacheKey, result, 24*time.Hour)

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ShowOperations(c *gin.Context) {
	docID := c.Param("id")

	ops, err := h.service.Operations(docID)
	if err != nil {
		c.Error(errors.NotFound("not_found", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ops": ops})
}

func (h *Handler) ShowContributions(c *gin.Context) {
	docID := c.Param("id")

	tallies, err := h.service.Contributions(docID)
	if err != nil {
		c.Error(errors.NotFound("not_found", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributions": tallies})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
