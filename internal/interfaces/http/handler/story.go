// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"storyboard-ai-api/internal/application/storyboard"
	"storyboard-ai-api/internal/domain/entity"
	"storyboard-ai-api/internal/domain/repository"
	"storyboard-ai-api/internal/interfaces/http/dto"
)

// StoryService 故事编排服务
type StoryService interface {
	CreateStory(ctx context.Context, briefing string, sceneCount int) (*entity.StorySession, error)
	RefineStory(ctx context.Context, sessionID, instruction string) (*storyboard.RefineOutput, error)
	SuggestArtStyles(ctx context.Context, sessionID string) ([]entity.ArtStyleSuggestion, error)
	RefineArtStyle(ctx context.Context, imageURL, originalPrompt, refinement string) (string, error)
	FinalizeStory(ctx context.Context, sessionID, referenceImageURL string) (*entity.StorySession, error)
	GetSession(ctx context.Context, sessionID string) (*entity.StorySession, error)
	ListEvents(ctx context.Context, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.SessionEvent], error)
}

// StoryHandler 故事处理器
type StoryHandler struct {
	svc StoryService
}

// NewStoryHandler 创建故事处理器
func NewStoryHandler(svc StoryService) *StoryHandler {
	useWireFieldNames()
	return &StoryHandler{svc: svc}
}

// CreateStory 创建故事
// @Summary 创建故事
// @Description 根据简报生成指定数量的分镜并创建会话
// @Tags Stories
// @Accept json
// @Produce json
// @Param body body dto.CreateStoryRequest true "故事简报"
// @Success 201 {object} dto.Response[dto.StoryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/stories [post]
func (h *StoryHandler) CreateStory(c *gin.Context) {
	var req dto.CreateStoryRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	session, err := h.svc.CreateStory(c.Request.Context(), req.Briefing, req.SceneCount)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Created(c, dto.ToStoryResponse(session, nil))
}

// RefineStory 精修故事
// @Summary 精修故事
// @Tags Stories
// @Accept json
// @Produce json
// @Param sessionId path string true "会话 ID"
// @Param body body dto.RefineStoryRequest true "精修指令"
// @Success 200 {object} dto.Response[dto.StoryResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /v1/stories/{sessionId}/refine [post]
func (h *StoryHandler) RefineStory(c *gin.Context) {
	sessionID, err := bindSessionID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req dto.RefineStoryRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	out, err := h.svc.RefineStory(c.Request.Context(), sessionID, req.Prompt)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.ToStoryResponse(out.Session, out.Warnings))
}

// SuggestArtStyles 画风建议
// @Summary 画风建议
// @Description 以第一个分镜为参考生成 3 个画风及预览图
// @Tags Stories
// @Produce json
// @Param sessionId path string true "会话 ID"
// @Success 200 {object} dto.Response[[]dto.ArtStyleResponse]
// @Router /v1/stories/{sessionId}/art-styles [post]
func (h *StoryHandler) SuggestArtStyles(c *gin.Context) {
	sessionID, err := bindSessionID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	styles, err := h.svc.SuggestArtStyles(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.ToArtStyleResponses(styles))
}

// RefineArtStyle 精修画风预览图
// @Summary 精修画风预览图
// @Tags ArtStyles
// @Accept json
// @Produce json
// @Param body body dto.RefineArtStyleRequest true "原图与修改要求"
// @Success 200 {object} dto.Response[dto.RefineArtStyleResponse]
// @Router /v1/art-styles/refine [post]
func (h *StoryHandler) RefineArtStyle(c *gin.Context) {
	var req dto.RefineArtStyleRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	url, err := h.svc.RefineArtStyle(c.Request.Context(), req.OriginalImageURL, req.OriginalImagePrompt, req.RefinementPrompt)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, &dto.RefineArtStyleResponse{NewImageURL: url})
}

// FinalizeStory 终稿插画
// @Summary 终稿插画
// @Tags Stories
// @Accept json
// @Produce json
// @Param sessionId path string true "会话 ID"
// @Param body body dto.FinalizeStoryRequest true "参考图"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Router /v1/stories/{sessionId}/finalize [post]
func (h *StoryHandler) FinalizeStory(c *gin.Context) {
	sessionID, err := bindSessionID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req dto.FinalizeStoryRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	session, err := h.svc.FinalizeStory(c.Request.Context(), sessionID, req.ReferenceImageURL)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(session))
}

// GetStory 获取会话
// @Summary 获取会话
// @Tags Stories
// @Produce json
// @Param sessionId path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Router /v1/stories/{sessionId} [get]
func (h *StoryHandler) GetStory(c *gin.Context) {
	sessionID, err := bindSessionID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	session, err := h.svc.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	dto.Success(c, dto.ToSessionResponse(session))
}

// ListEvents 会话事件列表
// @Summary 会话事件列表
// @Tags Stories
// @Produce json
// @Param sessionId path string true "会话 ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.SessionEventResponse]
// @Router /v1/stories/{sessionId}/events [get]
func (h *StoryHandler) ListEvents(c *gin.Context) {
	sessionID, err := bindSessionID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	pageReq := dto.BindPage(c)

	result, err := h.svc.ListEvents(c.Request.Context(), sessionID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		writeError(c, err)
		return
	}
	meta := dto.NewPageMeta(pageReq.Page, pageReq.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToSessionEventResponses(result.Items), meta)
}
