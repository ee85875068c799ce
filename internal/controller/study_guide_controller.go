package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mvhoang/Solvio/internal/dto"
	"github.com/mvhoang/Solvio/internal/middleware"
	"github.com/mvhoang/Solvio/internal/service"
	"github.com/rs/zerolog/log"
)

type StudyGuideController struct {
	guideService service.StudyGuideService
}

func NewStudyGuideController(guideService service.StudyGuideService) *StudyGuideController {
	return &StudyGuideController{guideService: guideService}
}

// GenerateStudyGuide godoc
// @Summary Generate a study guide from recent solved problems
// @Tags Study Guides
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param guide body dto.GenerateStudyGuideRequest false "Optional title"
// @Success 201 {object} dto.StudyGuideResponse
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Failure 422 {object} dto.ErrorResponse "No solved problems yet"
// @Failure 502 {object} dto.ErrorResponse "Generation backend unavailable"
// @Router /study-guides [post]
func (c *StudyGuideController) GenerateStudyGuide(ctx *gin.Context) {
	var req dto.GenerateStudyGuideRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
			return
		}
	}

	resp, err := c.guideService.Generate(ctx.Request.Context(), middleware.UserID(ctx), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSolvedProblems):
			ctx.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Message: "No solved problems to build a study guide from yet"})
		case errors.Is(err, service.ErrLLMUnavailable):
			ctx.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: "Study guide generation is temporarily unavailable, please retry"})
		default:
			log.Error().Err(err).Msg("GenerateStudyGuide: service error")
			ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to generate study guide"})
		}
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// ListStudyGuides godoc
// @Summary List study guides
// @Tags Study Guides
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.StudyGuideSummaryResponse
// @Router /study-guides [get]
func (c *StudyGuideController) ListStudyGuides(ctx *gin.Context) {
	resp, err := c.guideService.List(middleware.UserID(ctx))
	if err != nil {
		log.Error().Err(err).Msg("ListStudyGuides: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to fetch study guides"})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetStudyGuide godoc
// @Summary Get one study guide
// @Tags Study Guides
// @Produce json
// @Security BearerAuth
// @Param guide_id path int true "Study guide ID"
// @Success 200 {object} dto.StudyGuideResponse
// @Failure 404 {object} dto.ErrorResponse "Study guide not found"
// @Router /study-guides/{guide_id} [get]
func (c *StudyGuideController) GetStudyGuide(ctx *gin.Context) {
	guideID, ok := pathID(ctx, "guide_id")
	if !ok {
		return
	}
	resp, err := c.guideService.Get(middleware.UserID(ctx), guideID)
	if err != nil {
		c.renderGuideError(ctx, err, "GetStudyGuide")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// RenameStudyGuide godoc
// @Summary Rename a study guide
// @Tags Study Guides
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param guide_id path int true "Study guide ID"
// @Param rename body dto.RenameStudyGuideRequest true "New title"
// @Success 200 {object} dto.StudyGuideResponse
// @Failure 404 {object} dto.ErrorResponse "Study guide not found"
// @Router /study-guides/{guide_id} [patch]
func (c *StudyGuideController) RenameStudyGuide(ctx *gin.Context) {
	guideID, ok := pathID(ctx, "guide_id")
	if !ok {
		return
	}
	var req dto.RenameStudyGuideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	resp, err := c.guideService.Rename(middleware.UserID(ctx), guideID, req.Title)
	if err != nil {
		c.renderGuideError(ctx, err, "RenameStudyGuide")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DeleteStudyGuide godoc
// @Summary Delete a study guide
// @Tags Study Guides
// @Produce json
// @Security BearerAuth
// @Param guide_id path int true "Study guide ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse "Study guide not found"
// @Router /study-guides/{guide_id} [delete]
func (c *StudyGuideController) DeleteStudyGuide(ctx *gin.Context) {
	guideID, ok := pathID(ctx, "guide_id")
	if !ok {
		return
	}
	if err := c.guideService.Delete(middleware.UserID(ctx), guideID); err != nil {
		c.renderGuideError(ctx, err, "DeleteStudyGuide")
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *StudyGuideController) renderGuideError(ctx *gin.Context, err error, op string) {
	if errors.Is(err, service.ErrStudyGuideNotFound) {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Study guide not found"})
		return
	}
	log.Error().Err(err).Str("op", op).Msg("Study guide controller: service error")
	ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal server error"})
}
