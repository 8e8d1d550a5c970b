package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ymatsuda/member-api/internal/application"
	"github.com/ymatsuda/member-api/internal/domain/entity"
	"github.com/ymatsuda/member-api/pkg/response"
	"github.com/ymatsuda/member-api/pkg/validation"
)

type PostHandler struct {
	Svc    *application.PostService
	Logger *logrus.Logger
}

func NewPostHandler(svc *application.PostService, logger *logrus.Logger) *PostHandler {
	return &PostHandler{Svc: svc, Logger: logger}
}

type postRequest struct {
	Title     string `json:"title" binding:"required,max=200"`
	Content   string `json:"content" binding:"required"`
	Published bool   `json:"published"`
}

func postPayload(p *entity.Post) gin.H {
	return gin.H{
		"id":         p.ID,
		"user_id":    p.UserID,
		"title":      p.Title,
		"content":    p.Content,
		"published":  p.Published,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	}
}

func postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid post id", nil)
		return 0, false
	}
	return id, true
}

// Create POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.Create(c.Request.Context(), c.GetString("userID"), application.PostInput{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	})
	if err != nil {
		h.Logger.WithError(err).Error("post create failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to create post", nil)
		return
	}
	response.Success(c, http.StatusCreated, postPayload(p), "post created", nil)
}

// Get GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	p, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, application.ErrPostNotFound) {
			response.Error[any](c, http.StatusNotFound, "post not found", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to load post", nil)
		return
	}
	response.Success(c, http.StatusOK, postPayload(p), "post", nil)
}

// List GET /api/posts?limit=&offset=
// Lists the caller's own posts.
func (h *PostHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	posts, err := h.Svc.ListByUser(c.Request.Context(), c.GetString("userID"), limit, offset)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to list posts", nil)
		return
	}
	out := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		out = append(out, postPayload(p))
	}
	response.Success(c, http.StatusOK, out, "posts", map[string]any{"limit": limit, "offset": offset})
}

// Update PUT /api/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.Update(c.Request.Context(), c.GetString("userID"), id, application.PostInput{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	})
	if err != nil {
		h.postError(c, err, "failed to update post")
		return
	}
	response.Success(c, http.StatusOK, postPayload(p), "post updated", nil)
}

// Delete DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := postID(c)
	if !ok {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), c.GetString("userID"), id); err != nil {
		h.postError(c, err, "failed to delete post")
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "post deleted", nil)
}

// Search GET /api/posts/search?q=&size=
func (h *PostHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "missing query", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("post search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"query": q})
}

func (h *PostHandler) postError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, application.ErrPostNotFound):
		response.Error[any](c, http.StatusNotFound, "post not found", nil)
	case errors.Is(err, application.ErrNotPostOwner):
		response.Error[any](c, http.StatusForbidden, "not your post", nil)
	default:
		h.Logger.WithError(err).Error(msg)
		response.Error[any](c, http.StatusInternalServerError, msg, nil)
	}
}
