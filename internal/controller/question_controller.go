package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mvhoang/Solvio/internal/dto"
	"github.com/mvhoang/Solvio/internal/middleware"
	"github.com/mvhoang/Solvio/internal/model"
	"github.com/mvhoang/Solvio/internal/service"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes bounds the problem photo size (8 MiB).
const maxUploadBytes = 8 << 20

type QuestionController struct {
	questionService service.QuestionService
	graderService   service.AnswerGraderService
	storageService  service.StorageService
}

func NewQuestionController(
	questionService service.QuestionService,
	graderService service.AnswerGraderService,
	storageService service.StorageService,
) *QuestionController {
	return &QuestionController{
		questionService: questionService,
		graderService:   graderService,
		storageService:  storageService,
	}
}

// CreateQuestion godoc
// @Summary Submit a math problem
// @Description Upload a problem photo (multipart fields "image", "solution_mode", optional "problem_text" and repeated "tags") or pass image_url as JSON. The AI solution is produced in the background; poll the question until status clears.
// @Tags Questions
// @Accept json
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param question body dto.CreateQuestionRequest true "Problem details (JSON variant)"
// @Success 202 {object} dto.QuestionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Router /questions [post]
func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	userID := middleware.UserID(ctx)

	var req dto.CreateQuestionRequest
	var imageURL string

	if file, err := ctx.FormFile("image"); err == nil {
		req.SolutionMode = ctx.PostForm("solution_mode")
		if text := ctx.PostForm("problem_text"); text != "" {
			req.ProblemText = &text
		}
		req.Tags = ctx.PostFormArray("tags")
		if req.SolutionMode != model.SolutionModeSimilar && req.SolutionMode != model.SolutionModeStepByStep {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "solution_mode must be 'similar' or 'step_by_step'"})
			return
		}
		if file.Size > maxUploadBytes {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Image exceeds the 8MB upload limit"})
			return
		}
		src, err := file.Open()
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Could not read uploaded image"})
			return
		}
		defer src.Close()
		data, err := io.ReadAll(src)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Could not read uploaded image"})
			return
		}
		imageURL, err = c.storageService.UploadImage(ctx.Request.Context(), data, file.Header.Get("Content-Type"))
		if err != nil {
			log.Error().Err(err).Uint("userID", userID).Msg("CreateQuestion: image upload failed")
			ctx.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: "Failed to store problem image"})
			return
		}
	} else {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
			return
		}
		if req.ImageURL == "" {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Provide an image upload or an image_url"})
			return
		}
		imageURL = req.ImageURL
	}

	resp, err := c.questionService.Create(userID, req, imageURL)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("CreateQuestion: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to create question"})
		return
	}
	ctx.JSON(http.StatusAccepted, resp)
}

// ListQuestions godoc
// @Summary List problem history
// @Tags Questions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.QuestionResponse
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Router /questions [get]
func (c *QuestionController) ListQuestions(ctx *gin.Context) {
	resp, err := c.questionService.List(middleware.UserID(ctx))
	if err != nil {
		log.Error().Err(err).Msg("ListQuestions: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to fetch question history"})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetQuestion godoc
// @Summary Get one question
// @Tags Questions
// @Produce json
// @Security BearerAuth
// @Param question_id path int true "Question ID"
// @Success 200 {object} dto.QuestionResponse
// @Failure 404 {object} dto.ErrorResponse "Question not found"
// @Router /questions/{question_id} [get]
func (c *QuestionController) GetQuestion(ctx *gin.Context) {
	questionID, ok := pathID(ctx, "question_id")
	if !ok {
		return
	}
	resp, err := c.questionService.Get(middleware.UserID(ctx), questionID)
	if err != nil {
		c.renderQuestionError(ctx, err, "GetQuestion")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetSteps godoc
// @Summary Get the step-by-step walkthrough of a question
// @Description Parses the stored solution into ordered steps. 409 while the solution is still processing.
// @Tags Questions
// @Produce json
// @Security BearerAuth
// @Param question_id path int true "Question ID"
// @Success 200 {object} dto.StepsResponse
// @Failure 404 {object} dto.ErrorResponse "Question not found"
// @Failure 409 {object} dto.ErrorResponse "Solution still processing"
// @Failure 422 {object} dto.ErrorResponse "Question is not step-by-step, or its solve failed"
// @Router /questions/{question_id}/steps [get]
func (c *QuestionController) GetSteps(ctx *gin.Context) {
	questionID, ok := pathID(ctx, "question_id")
	if !ok {
		return
	}
	resp, err := c.questionService.GetSteps(middleware.UserID(ctx), questionID)
	if err != nil {
		c.renderQuestionError(ctx, err, "GetSteps")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GradeAnswer godoc
// @Summary Grade a student's answer for one step
// @Description Accepts mathematically equivalent answers; a failed upstream call is a 502, never a verdict.
// @Tags Grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param grading body dto.GradeAnswerRequest true "Answer to grade"
// @Success 200 {object} dto.GradeResultResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid or oversized input"
// @Failure 401 {object} dto.ErrorResponse "Missing or invalid token"
// @Failure 502 {object} dto.ErrorResponse "Grading backend unavailable"
// @Router /grade [post]
func (c *QuestionController) GradeAnswer(ctx *gin.Context) {
	var req dto.GradeAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid grading request", Details: []string{err.Error()}})
		return
	}

	resp, err := c.graderService.Grade(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrLLMUnavailable) {
			ctx.JSON(http.StatusBadGateway, dto.ErrorResponse{Message: "Grading is temporarily unavailable, please retry"})
			return
		}
		log.Error().Err(err).Msg("GradeAnswer: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Failed to grade answer"})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// UpdateProgress godoc
// @Summary Advance the completed-steps counter
// @Description Called after the client accepts a graded answer. The counter only moves forward.
// @Tags Questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param question_id path int true "Question ID"
// @Param progress body dto.UpdateProgressRequest true "New completed-steps count"
// @Success 200 {object} dto.QuestionResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 404 {object} dto.ErrorResponse "Question not found"
// @Failure 422 {object} dto.ErrorResponse "Progress out of range"
// @Router /questions/{question_id}/progress [patch]
func (c *QuestionController) UpdateProgress(ctx *gin.Context) {
	questionID, ok := pathID(ctx, "question_id")
	if !ok {
		return
	}
	var req dto.UpdateProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	resp, err := c.questionService.UpdateProgress(middleware.UserID(ctx), questionID, req.CompletedSteps)
	if err != nil {
		c.renderQuestionError(ctx, err, "UpdateProgress")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// UpdateTags godoc
// @Summary Replace the tags of a question
// @Tags Questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param question_id path int true "Question ID"
// @Param tags body dto.UpdateQuestionTagsRequest true "New tags"
// @Success 200 {object} dto.QuestionResponse
// @Failure 404 {object} dto.ErrorResponse "Question not found"
// @Router /questions/{question_id}/tags [put]
func (c *QuestionController) UpdateTags(ctx *gin.Context) {
	questionID, ok := pathID(ctx, "question_id")
	if !ok {
		return
	}
	var req dto.UpdateQuestionTagsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	resp, err := c.questionService.UpdateTags(middleware.UserID(ctx), questionID, req.Tags)
	if err != nil {
		c.renderQuestionError(ctx, err, "UpdateTags")
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// DeleteQuestion godoc
// @Summary Delete a question
// @Tags Questions
// @Produce json
// @Security BearerAuth
// @Param question_id path int true "Question ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse "Question not found"
// @Router /questions/{question_id} [delete]
func (c *QuestionController) DeleteQuestion(ctx *gin.Context) {
	questionID, ok := pathID(ctx, "question_id")
	if !ok {
		return
	}
	if err := c.questionService.Delete(ctx.Request.Context(), middleware.UserID(ctx), questionID); err != nil {
		c.renderQuestionError(ctx, err, "DeleteQuestion")
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *QuestionController) renderQuestionError(ctx *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Question not found"})
	case errors.Is(err, service.ErrSolutionNotReady):
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Solution is still processing, try again shortly"})
	case errors.Is(err, service.ErrSolutionFailed):
		ctx.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Message: "Solution generation failed, submit the problem again"})
	case errors.Is(err, service.ErrNotStepByStep):
		ctx.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Message: "Question is not a step-by-step walkthrough"})
	case errors.Is(err, service.ErrProgressMovesBack), errors.Is(err, service.ErrProgressOutOfBounds):
		ctx.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Message: err.Error()})
	default:
		log.Error().Err(err).Str("op", op).Msg("Question controller: service error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "Internal server error"})
	}
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(val), true
}
