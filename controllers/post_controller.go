package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/middleware"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// PostController manages posts, comments and tags.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req services.PostInput
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := p.posts.CreatePost(ctx.Request.Context(), middleware.CurrentUser(ctx), req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, post)
}

// ListPosts returns a page of posts, optionally filtered by tag or author.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page := parsePagination(ctx)
	items, total, err := p.posts.ListPosts(ctx.Request.Context(), middleware.CurrentUser(ctx), services.PostQuery{
		Page:     page.Page,
		Limit:    page.Limit,
		Tag:      ctx.Query("tag"),
		AuthorID: queryID(ctx, "author"),
		Sort:     ctx.Query("sort"),
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Paginated(ctx, items, utils.NewMeta(page.Page, page.Limit, total))
}

// GetPost returns a post with its comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	post, err := p.posts.GetPost(ctx.Request.Context(), middleware.CurrentUser(ctx), id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// UpdatePost lets the author edit a post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req services.PostUpdateInput
	if !bindJSON(ctx, &req) {
		return
	}
	post, err := p.posts.UpdatePost(ctx.Request.Context(), middleware.CurrentUser(ctx), id, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	if err := p.posts.DeletePost(ctx.Request.Context(), middleware.CurrentUser(ctx), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateComment answers a post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := p.posts.CreateComment(ctx.Request.Context(), middleware.CurrentUser(ctx), id, req.Content)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, comment)
}

// UpdateComment edits the caller's comment.
func (p *PostController) UpdateComment(ctx *gin.Context) {
	id, ok := paramID(ctx, "commentId")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	comment, err := p.posts.UpdateComment(ctx.Request.Context(), middleware.CurrentUser(ctx), id, req.Content)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

// DeleteComment removes a comment.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	id, ok := paramID(ctx, "commentId")
	if !ok {
		return
	}
	if err := p.posts.DeleteComment(ctx.Request.Context(), middleware.CurrentUser(ctx), id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

// ListTags returns popular tags.
func (p *PostController) ListTags(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	tags, err := p.posts.ListTags(ctx.Request.Context(), limit)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, tags)
}
