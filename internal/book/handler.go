package book

import (
	"net/http"
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

type CreateBookRequest struct {
	Title         string `json:"title" binding:"required,min=1,max=200"`
	CategoryID    string `json:"categoryId" binding:"required,max=20"`
	MaxSequence   int    `json:"maxSequence" binding:"required,min=10,max=100"`
	FirstSentence string `json:"firstSentence" binding:"required,min=1,max=200"`
}

type RenameRequest struct {
	Title string `json:"title" binding:"required,min=1,max=200"`
}

type SentenceRequest struct {
	Content string `json:"content" binding:"required,min=1,max=200"`
}

type TypingRequest struct {
	Area   TypingArea `json:"area" binding:"omitempty,oneof=SENTENCE COMMENT"`
	Typing *bool      `json:"typing" binding:"required"`
}

func parseID(c *gin.Context, name, what string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.Error(errors.NotFound(what+" not found", err))
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var form CreateBookRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	book, err := h.service.CreateBook(c.Request.Context(), identity, CreateBookInput{
		Title:         form.Title,
		CategoryID:    form.CategoryID,
		MaxSequence:   form.MaxSequence,
		FirstSentence: form.FirstSentence,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, book)
}

func (h *Handler) Show(c *gin.Context) {
	bookID, ok := parseID(c, "id", "Book")
	if !ok {
		return
	}

	detail, err := h.service.GetBook(c.Request.Context(), bookID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) Rename(c *gin.Context) {
	bookID, ok := parseID(c, "id", "Book")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input RenameRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	book, err := h.service.UpdateBookTitle(c.Request.Context(), bookID, identity, input.Title)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (h *Handler) Delete(c *gin.Context) {
	bookID, ok := parseID(c, "id", "Book")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteBook(c.Request.Context(), bookID, identity); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Complete(c *gin.Context) {
	bookID, ok := parseID(c, "id", "Book")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	book, err := h.service.CompleteBook(c.Request.Context(), bookID, identity)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (h *Handler) AppendSentence(c *gin.Context) {
	bookID, ok := parseID(c, "id", "Book")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input SentenceRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	sentence, err := h.service.AppendSentence(c.Request.Context(), bookID, identity, input.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, sentence)
}

func (h *Handler) UpdateSentence(c *gin.Context) {
	bookID, ok := parseID(c, "id", "Book")
	if !ok {
		return
	}
	sentenceID, ok := parseID(c, "sentenceId", "Sentence")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var input SentenceRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	sentence, err := h.service.UpdateSentence(c.Request.Context(), bookID, sentenceID, identity, input.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, sentence)
}

func (h *Handler) DeleteSentence(c *gin.Context) {
	bookID, ok := parseID(c, "id", "Book")
	if !ok {
		return
	}
	sentenceID, ok := parseID(c, "sentenceId", "Sentence")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteSentence(c.Request.Context(), bookID, sentenceID, identity); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ShowSentenceBook answers which book a sentence belongs to. Internal only.
func (h *Handler) ShowSentenceBook(c *gin.Context) {
	sentenceID, ok := parseID(c, "id", "Sentence")
	if !ok {
		return
	}

	bookID, err := h.service.BookIDForSentence(c.Request.Context(), sentenceID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookId": bookID})
}

func (h *Handler) Typing(c *gin.Context) {
	bookID, ok := parseID(c, "id", "Book")
	if !ok {
		return
	}
	identity, err := middleware.IdentityFrom(c)
	if err != nil {
		c.Error(err)
		return
	}

	var form TypingRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	if err := h.service.ReportTyping(c.Request.Context(), bookID, identity, form.Area, *form.Typing); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
