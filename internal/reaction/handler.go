package reaction

import (
	"context"
	"net/http"
	"relay-story-server/internal/domain"
	"relay-story-server/internal/errors"
	"relay-story-server/internal/middleware"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type VoteRequest struct {
	VoteType domain.VoteType `json:"voteType" binding:"required,oneof=LIKE DISLIKE"`
}

type CreateCommentRequest struct {
	Content  string  `json:"content" binding:"required,max=1000"`
	ParentID *uint64 `json:"parentId"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,max=1000"`
}

func parseID(c *gin.Context, what string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.NotFound(what+" not found", err))
		return 0, false
	}
	return id, true
}

func (h *Handler) VoteBook(c *gin.Context) {
	h.vote(c, "Book", h.service.VoteBook)
}

func (h *Handler) VoteSentence(c *gin.Context) {
	h.vote(c, "Sentence", h.service.VoteSentence)
}

func (h *Handler) vote(
	c *gin.Context,
	what string,
	cast func(ctx context.Context, targetID, voterID uint64, voteType domain.VoteType) (bool, error),
) {
	targetID, ok := parseID(c, what)
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	active, err := cast(c.Request.Context(), targetID, identity.UserID, input.VoteType)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"active": active})
}

func (h *Handler) ShowBookVotes(c *gin.Context) {
	h.showVotes(c, domain.TargetBook, "Book")
}

func (h *Handler) ShowSentenceVotes(c *gin.Context) {
	h.showVotes(c, domain.TargetSentence, "Sentence")
}

func (h *Handler) showVotes(c *gin.Context, targetType domain.TargetType, what string) {
	targetID, ok := parseID(c, what)
	if !ok {
		return
	}

	counts, err := h.service.VoteSummary(c.Request.Context(), domain.Target{Type: targetType, ID: targetID})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

func (h *Handler) ShowComments(c *gin.Context) {
	bookID, ok := parseID(c, "Book")
	if !ok {
		return
	}

	tree, err := h.service.GetComments(c.Request.Context(), bookID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tree})
}

func (h *Handler) CreateComment(c *gin.Context) {
	bookID, ok := parseID(c, "Book")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	comment, err := h.service.AddComment(c.Request.Context(), identity, bookID, input.ParentID, input.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) UpdateComment(c *gin.Context) {
	commentID, ok := parseID(c, "Comment")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input UpdateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	comment, err := h.service.UpdateComment(c.Request.Context(), commentID, identity, input.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, comment)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	commentID, ok := parseID(c, "Comment")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteComment(c.Request.Context(), commentID, identity); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
