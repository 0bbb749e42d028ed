package controller

import (
	"context"
	"encoding/json"
	"errors"
	"worksheet_backend/internal/model"
	"worksheet_backend/internal/service"
	"worksheet_backend/internal/sourcing"
	"worksheet_backend/internal/util"
	"worksheet_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WorksheetController 处理练习卷相关的API请求
type WorksheetController struct {
	WorksheetService *service.WorksheetService
}

func NewWorksheetController(worksheetService *service.WorksheetService) *WorksheetController {
	return &WorksheetController{WorksheetService: worksheetService}
}

// StringList 既接受单个字符串也接受字符串数组，例如 "ALL" 或 ["easy","hard"]
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("expected a string or an array of strings")
	}
	*l = many
	return nil
}

// GenerateWorksheetRequest 组卷请求
// swagger:model GenerateWorksheetRequest
type GenerateWorksheetRequest struct {
	Subject              string     `json:"subject" binding:"required"`
	Grade                int        `json:"grade" binding:"required,min=1,max=11"`
	TopicID              string     `json:"topicId"`
	TopicLabel           string     `json:"topicLabel"`
	Quarter              int        `json:"quarter" binding:"omitempty,min=0,max=4"`
	Week                 int        `json:"week" binding:"omitempty,min=0"`
	TaskCount            int        `json:"taskCount" binding:"required,min=1"`
	Difficulty           StringList `json:"difficulty" swaggertype:"array,string"`
	TaskTypes            StringList `json:"taskTypes" swaggertype:"array,string"`
	Format               string     `json:"format"`
	GenerationPercentage int        `json:"generationPercentage" binding:"min=0,max=100"`
	CustomInstructions   string     `json:"customInstructions"`
	Language             string     `json:"language"`
}

func (r GenerateWorksheetRequest) toModel() model.GenerationRequest {
	taskTypes := []string(r.TaskTypes)
	if len(taskTypes) == 0 {
		taskTypes = []string{model.AllSentinel}
	}
	return model.GenerationRequest{
		Subject:              r.Subject,
		Grade:                r.Grade,
		TopicID:              r.TopicID,
		TopicLabel:           r.TopicLabel,
		Quarter:              r.Quarter,
		Week:                 r.Week,
		TaskCount:            r.TaskCount,
		Difficulties:         []string(r.Difficulty),
		TaskTypes:            taskTypes,
		Format:               r.Format,
		GenerationPercentage: r.GenerationPercentage,
		CustomInstructions:   r.CustomInstructions,
		Language:             r.Language,
	}
}

// ListWorksheetsRequest 分页参数
type ListWorksheetsRequest struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Generate godoc
// @Summary 生成练习卷
// @Description 按生成比例从生成服务与题库组合出练习卷，题库按条件逐级放宽补足
// @Tags 练习卷
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body GenerateWorksheetRequest true "组卷请求"
// @Success 201 {object} util.Response{data=model.Worksheet} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 422 {object} util.Response "两个来源都没有匹配的题目"
// @Failure 429 {object} util.Response "组卷过于频繁"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /worksheets/generate [post]
func (c *WorksheetController) Generate(ctx *gin.Context) {
	var request GenerateWorksheetRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ws, err := c.WorksheetService.Generate(ctx.Request.Context(), util.CurrentUserID(ctx), request.toModel())
	if err != nil {
		var verr *sourcing.ValidationError
		switch {
		case errors.As(err, &verr):
			util.ValidationFailed(ctx, sourcing.ErrInvalidRequest.Error(), verr.Problems)
		case errors.Is(err, sourcing.ErrInvalidRequest):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, sourcing.ErrNoMatchingContent):
			util.UnprocessableEntity(ctx, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logger.FromContext(ctx.Request.Context()).Info("Worksheet generation cancelled", zap.Error(err))
			util.ServiceUnavailable(ctx, "request cancelled")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, ws)
}

// Get godoc
// @Summary 获取练习卷
// @Description 按ID获取已保存的练习卷，包括题目与组卷轨迹
// @Tags 练习卷
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "练习卷ID"
// @Success 200 {object} util.Response{data=model.Worksheet} "成功"
// @Failure 403 {object} util.Response "无权访问"
// @Failure 404 {object} util.Response "练习卷不存在"
// @Router /worksheets/{id} [get]
func (c *WorksheetController) Get(ctx *gin.Context) {
	ws, err := c.WorksheetService.Get(ctx.Request.Context(), ctx.Param("id"), util.CurrentUserID(ctx))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrWorksheetNotFound):
			util.NotFound(ctx, err.Error())
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, ws)
}

// List godoc
// @Summary 练习卷列表
// @Description 登录用户只看到自己创建的练习卷
// @Tags 练习卷
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /worksheets [get]
func (c *WorksheetController) List(ctx *gin.Context) {
	var request ListWorksheetsRequest
	if err := ctx.ShouldBindQuery(&request); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if request.Page == 0 {
		request.Page = util.DefaultPage
	}
	if request.Limit == 0 {
		request.Limit = util.DefaultLimit
	}

	list, total, err := c.WorksheetService.List(ctx.Request.Context(), util.CurrentUserID(ctx), request.Page, request.Limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Page(ctx, list, total, request.Page, request.Limit)
}
