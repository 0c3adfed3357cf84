package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/qaforum/middleware"
	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/services"
	"github.com/cppla/qaforum/utils"
)

// VoteController exposes voting and answer acceptance.
type VoteController struct {
	votes   *services.VoteService
	answers *services.AnswerService
}

func NewVoteController(votes *services.VoteService, answers *services.AnswerService) *VoteController {
	return &VoteController{votes: votes, answers: answers}
}

func (v *VoteController) vote(ctx *gin.Context, target models.TargetType, param string) {
	id, ok := paramID(ctx, param)
	if !ok {
		return
	}
	var req struct {
		Value models.VoteValue `json:"value" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	res, err := v.votes.Vote(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, target, id, req.Value)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

func (v *VoteController) unvote(ctx *gin.Context, target models.TargetType, param string) {
	id, ok := paramID(ctx, param)
	if !ok {
		return
	}
	res, err := v.votes.RemoveVote(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, target, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

func (v *VoteController) VotePost(ctx *gin.Context)      { v.vote(ctx, models.TargetPost, "id") }
func (v *VoteController) UnvotePost(ctx *gin.Context)    { v.unvote(ctx, models.TargetPost, "id") }
func (v *VoteController) VoteComment(ctx *gin.Context)   { v.vote(ctx, models.TargetComment, "commentId") }
func (v *VoteController) UnvoteComment(ctx *gin.Context) { v.unvote(ctx, models.TargetComment, "commentId") }

// AcceptAnswer marks a comment as the accepted answer.
func (v *VoteController) AcceptAnswer(ctx *gin.Context) {
	id, ok := paramID(ctx, "commentId")
	if !ok {
		return
	}
	comment, err := v.answers.AcceptAnswer(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

// UnacceptAnswer clears the accepted answer.
func (v *VoteController) UnacceptAnswer(ctx *gin.Context) {
	id, ok := paramID(ctx, "commentId")
	if !ok {
		return
	}
	comment, err := v.answers.UnacceptAnswer(ctx.Request.Context(), middleware.CurrentUser(ctx).ID, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}
