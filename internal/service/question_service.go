package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvhoang/Solvio/internal/dto"
	"github.com/mvhoang/Solvio/internal/model"
	"github.com/mvhoang/Solvio/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrQuestionNotFound    = errors.New("question not found")
	ErrNotStepByStep       = errors.New("question is not a step-by-step walkthrough")
	ErrSolutionNotReady    = errors.New("solution is still processing")
	ErrSolutionFailed      = errors.New("solution generation failed")
	ErrProgressMovesBack   = errors.New("completed steps may only move forward")
	ErrProgressOutOfBounds = errors.New("completed steps exceeds total steps")
)

const solveTimeout = 2 * time.Minute

type QuestionService interface {
	Create(userID uint, req dto.CreateQuestionRequest, imageURL string) (*dto.QuestionResponse, error)
	List(userID uint) ([]dto.QuestionResponse, error)
	Get(userID, questionID uint) (*dto.QuestionResponse, error)
	GetSteps(userID, questionID uint) (*dto.StepsResponse, error)
	UpdateProgress(userID, questionID uint, completedSteps int) (*dto.QuestionResponse, error)
	UpdateTags(userID, questionID uint, tags []string) (*dto.QuestionResponse, error)
	Delete(ctx context.Context, userID, questionID uint) error
}

type questionService struct {
	questionRepo repository.QuestionRepository
	gemini       GeminiLLMService
	parser       StepParserService
	storage      StorageService
}

func NewQuestionService(
	questionRepo repository.QuestionRepository,
	gemini GeminiLLMService,
	parser StepParserService,
	storage StorageService,
) QuestionService {
	return &questionService{
		questionRepo: questionRepo,
		gemini:       gemini,
		parser:       parser,
		storage:      storage,
	}
}

// Create persists the question in the "processing" state and solves it with
// the LLM in the background. The response returns immediately; clients poll
// the question until the status clears.
func (s *questionService) Create(userID uint, req dto.CreateQuestionRequest, imageURL string) (*dto.QuestionResponse, error) {
	question := model.Question{
		UserID:       userID,
		ImageURL:     imageURL,
		ProblemText:  req.ProblemText,
		SolutionMode: req.SolutionMode,
	}
	if err := question.EncodeSolution(model.SolutionData{Status: model.SolutionStatusProcessing}); err != nil {
		return nil, fmt.Errorf("failed to encode solution data: %w", err)
	}
	if len(req.Tags) > 0 {
		if err := question.EncodeTags(req.Tags); err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
	}

	if err := s.questionRepo.Create(&question); err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("Failed to create question record")
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	go s.solveInBackground(question.ID)

	return toQuestionResponse(&question)
}

// solveInBackground runs the LLM solve for a freshly created question and
// stores the outcome. Nothing here is fatal to the process; failures leave
// the record in the "failed" state for the client to retry.
func (s *questionService) solveInBackground(questionID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), solveTimeout)
	defer cancel()

	question, err := s.questionRepo.FindByID(questionID)
	if err != nil {
		log.Error().Err(err).Uint("questionID", questionID).Msg("Background solve: question vanished before solving")
		return
	}

	problemText := ""
	if question.ProblemText != nil {
		problemText = *question.ProblemText
	}

	solution, err := s.gemini.SolveProblem(ctx, question.ImageURL, problemText, question.SolutionMode)
	if err != nil {
		log.Error().Err(err).Uint("questionID", questionID).Msg("Background solve: LLM call failed")
		s.storeSolution(question, model.SolutionData{Status: model.SolutionStatusFailed})
		return
	}

	var data model.SolutionData
	if question.SolutionMode == model.SolutionModeStepByStep {
		parsed := s.parser.Parse(solution)
		data.RawSolution = solution
		data.TotalSteps = len(parsed.Steps)
	} else {
		data.Solution = solution
	}
	s.storeSolution(question, data)
	log.Info().Uint("questionID", questionID).Str("mode", question.SolutionMode).Msg("Background solve completed")
}

func (s *questionService) storeSolution(question *model.Question, data model.SolutionData) {
	if err := question.EncodeSolution(data); err != nil {
		log.Error().Err(err).Uint("questionID", question.ID).Msg("Failed to encode solution payload")
		return
	}
	if err := s.questionRepo.Update(question); err != nil {
		log.Error().Err(err).Uint("questionID", question.ID).Msg("Failed to store solution payload")
	}
}

func (s *questionService) List(userID uint) ([]dto.QuestionResponse, error) {
	questions, err := s.questionRepo.FindByUser(userID)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("Failed to list questions")
		return nil, fmt.Errorf("error fetching question history: %w", err)
	}
	responses := make([]dto.QuestionResponse, 0, len(questions))
	for i := range questions {
		resp, err := toQuestionResponse(&questions[i])
		if err != nil {
			return nil, err
		}
		responses = append(responses, *resp)
	}
	return responses, nil
}

func (s *questionService) Get(userID, questionID uint) (*dto.QuestionResponse, error) {
	question, err := s.findOwned(userID, questionID)
	if err != nil {
		return nil, err
	}
	return toQuestionResponse(question)
}

// GetSteps re-parses the stored raw solution into the step walkthrough. Steps
// are never persisted structurally; the raw text is the source of truth.
func (s *questionService) GetSteps(userID, questionID uint) (*dto.StepsResponse, error) {
	question, err := s.findOwned(userID, questionID)
	if err != nil {
		return nil, err
	}
	if question.SolutionMode != model.SolutionModeStepByStep {
		return nil, ErrNotStepByStep
	}
	data, err := question.DecodeSolution()
	if err != nil {
		return nil, fmt.Errorf("failed to decode solution data: %w", err)
	}
	// A failed solve is terminal; only re-submitting the problem helps, so it
	// must not look like the "still processing, poll again" case.
	if data.Status == model.SolutionStatusFailed {
		return nil, ErrSolutionFailed
	}
	if data.Status == model.SolutionStatusProcessing || data.RawSolution == "" {
		return nil, ErrSolutionNotReady
	}

	parsed := s.parser.Parse(data.RawSolution)
	steps := make([]dto.StepResponse, 0, len(parsed.Steps))
	for _, st := range parsed.Steps {
		steps = append(steps, dto.StepResponse{Instruction: st.Instruction, Hint: st.Hint, Answer: st.Answer})
	}
	return &dto.StepsResponse{
		QuestionID:     question.ID,
		Steps:          steps,
		CompletedSteps: data.CompletedSteps,
		Fallback:       parsed.Source == StepSourceFallback,
	}, nil
}

// UpdateProgress advances the persisted completed-steps counter after the
// client accepted a graded answer. The counter is monotonic and bounded by
// the total step count.
func (s *questionService) UpdateProgress(userID, questionID uint, completedSteps int) (*dto.QuestionResponse, error) {
	question, err := s.findOwned(userID, questionID)
	if err != nil {
		return nil, err
	}
	if question.SolutionMode != model.SolutionModeStepByStep {
		return nil, ErrNotStepByStep
	}
	data, err := question.DecodeSolution()
	if err != nil {
		return nil, fmt.Errorf("failed to decode solution data: %w", err)
	}
	if data.Status == model.SolutionStatusProcessing {
		return nil, ErrSolutionNotReady
	}
	if data.Status == model.SolutionStatusFailed {
		return nil, ErrSolutionFailed
	}
	if completedSteps < data.CompletedSteps {
		return nil, ErrProgressMovesBack
	}
	if completedSteps > data.TotalSteps {
		return nil, ErrProgressOutOfBounds
	}

	data.CompletedSteps = completedSteps
	if err := question.EncodeSolution(data); err != nil {
		return nil, fmt.Errorf("failed to encode solution data: %w", err)
	}
	if err := s.questionRepo.Update(question); err != nil {
		log.Error().Err(err).Uint("questionID", questionID).Msg("Failed to persist progress update")
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	return toQuestionResponse(question)
}

func (s *questionService) UpdateTags(userID, questionID uint, tags []string) (*dto.QuestionResponse, error) {
	question, err := s.findOwned(userID, questionID)
	if err != nil {
		return nil, err
	}
	if err := question.EncodeTags(tags); err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	if err := s.questionRepo.Update(question); err != nil {
		return nil, fmt.Errorf("failed to update tags: %w", err)
	}
	return toQuestionResponse(question)
}

func (s *questionService) Delete(ctx context.Context, userID, questionID uint) error {
	question, err := s.findOwned(userID, questionID)
	if err != nil {
		return err
	}
	if err := s.questionRepo.Delete(question.ID); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	// Best effort; the DB row is already gone and that is what the user sees.
	if err := s.storage.DeleteImage(ctx, question.ImageURL); err != nil {
		log.Warn().Err(err).Uint("questionID", questionID).Msg("Failed to delete stored problem image")
	}
	return nil
}

func (s *questionService) findOwned(userID, questionID uint) (*model.Question, error) {
	question, err := s.questionRepo.FindByID(questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("error fetching question: %w", err)
	}
	if question.UserID != userID {
		// Hide other users' questions entirely.
		return nil, ErrQuestionNotFound
	}
	return question, nil
}

func toQuestionResponse(question *model.Question) (*dto.QuestionResponse, error) {
	data, err := question.DecodeSolution()
	if err != nil {
		return nil, fmt.Errorf("failed to decode solution data for question %d: %w", question.ID, err)
	}
	tags, err := question.DecodeTags()
	if err != nil {
		return nil, fmt.Errorf("failed to decode tags for question %d: %w", question.ID, err)
	}
	return &dto.QuestionResponse{
		ID:             question.ID,
		ImageURL:       question.ImageURL,
		ProblemText:    question.ProblemText,
		SolutionMode:   question.SolutionMode,
		Status:         data.Status,
		Solution:       data.Solution,
		CompletedSteps: data.CompletedSteps,
		TotalSteps:     data.TotalSteps,
		Tags:           tags,
		CreatedAt:      question.CreatedAt,
	}, nil
}
