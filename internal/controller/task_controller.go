package controller

import (
	"worksheet_backend/internal/service"
	"worksheet_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// TaskController 题库相关接口
type TaskController struct {
	WorksheetService *service.WorksheetService
}

func NewTaskController(worksheetService *service.WorksheetService) *TaskController {
	return &TaskController{WorksheetService: worksheetService}
}

// PoolStatsRequest 题库统计参数
type PoolStatsRequest struct {
	Subject string `form:"subject" binding:"required"`
	Grade   int    `form:"grade" binding:"required,min=1,max=11"`
}

// PoolStats godoc
// @Summary 题库统计
// @Description 按题型与难度统计某学科年级下已上架的题目数量
// @Tags 题库
// @Produce json
// @Security ApiKeyAuth
// @Param subject query string true "学科"
// @Param grade query int true "年级"
// @Success 200 {object} util.Response{data=repository.TaskPoolStats} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /tasks/pool/stats [get]
func (c *TaskController) PoolStats(ctx *gin.Context) {
	var request PoolStatsRequest
	if err := ctx.ShouldBindQuery(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	stats, err := c.WorksheetService.PoolStats(ctx.Request.Context(), request.Subject, request.Grade)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
