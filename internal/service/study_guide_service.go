package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jinzhu/copier"
	"github.com/mvhoang/Solvio/internal/dto"
	"github.com/mvhoang/Solvio/internal/model"
	"github.com/mvhoang/Solvio/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrStudyGuideNotFound = errors.New("study guide not found")
	ErrNoSolvedProblems   = errors.New("no solved problems to build a study guide from")
)

// guideHistoryLimit caps how many recent questions feed the guide context.
const guideHistoryLimit = 20

type StudyGuideService interface {
	Generate(ctx context.Context, userID uint, req dto.GenerateStudyGuideRequest) (*dto.StudyGuideResponse, error)
	List(userID uint) ([]dto.StudyGuideSummaryResponse, error)
	Get(userID, guideID uint) (*dto.StudyGuideResponse, error)
	Rename(userID, guideID uint, title string) (*dto.StudyGuideResponse, error)
	Delete(userID, guideID uint) error
}

type studyGuideService struct {
	guideRepo    repository.StudyGuideRepository
	questionRepo repository.QuestionRepository
	generator    TextGenerator
}

func NewStudyGuideService(
	guideRepo repository.StudyGuideRepository,
	questionRepo repository.QuestionRepository,
	generator TextGenerator,
) StudyGuideService {
	return &studyGuideService{guideRepo: guideRepo, questionRepo: questionRepo, generator: generator}
}

const studyGuidePrompt = `You are a math tutor writing a personalized study guide. Below is a student's recent problem history: the problems they worked on and the solutions they received.

%s

Write a study guide in markdown that:
- groups the problems into topics
- summarizes the key methods the student has practiced
- calls out likely weak spots based on the mix of problems
- ends with 3-5 practice suggestions, ordered from easiest to hardest.`

// Generate builds a study guide from the student's recent solved problems and
// persists it. Questions still processing (or failed) carry no solution and
// are excluded from the context.
func (s *studyGuideService) Generate(ctx context.Context, userID uint, req dto.GenerateStudyGuideRequest) (*dto.StudyGuideResponse, error) {
	questions, err := s.questionRepo.FindRecentByUser(userID, guideHistoryLimit)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("Failed to fetch question history for study guide")
		return nil, fmt.Errorf("error fetching question history: %w", err)
	}

	history, used := buildGuideContext(questions)
	if used == 0 {
		return nil, ErrNoSolvedProblems
	}

	content, err := s.generator.GenerateText(ctx, fmt.Sprintf(studyGuidePrompt, history))
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("Study guide generation call failed")
		return nil, fmt.Errorf("study guide generation failed: %w", err)
	}

	title := req.Title
	if title == "" {
		title = "Study Guide — " + time.Now().Format("Jan 2, 2006")
	}
	guide := model.StudyGuide{UserID: userID, Title: title, Content: content}
	if err := s.guideRepo.Create(&guide); err != nil {
		return nil, fmt.Errorf("failed to save study guide: %w", err)
	}

	log.Info().Uint("userID", userID).Uint("guideID", guide.ID).Int("problemsUsed", used).Msg("Study guide generated")
	return toStudyGuideResponse(&guide)
}

// buildGuideContext renders the usable slice of a question history into a
// prompt block. Returns the block and how many questions contributed.
func buildGuideContext(questions []model.Question) (string, int) {
	var b strings.Builder
	used := 0
	for i := range questions {
		q := &questions[i]
		data, err := q.DecodeSolution()
		if err != nil {
			log.Warn().Err(err).Uint("questionID", q.ID).Msg("Skipping question with undecodable solution data")
			continue
		}
		if data.Status != "" {
			// "processing" has no solution yet; "failed" never got one.
			continue
		}
		solution := data.Solution
		if solution == "" {
			solution = data.RawSolution
		}
		if solution == "" {
			continue
		}

		used++
		fmt.Fprintf(&b, "Problem %d", used)
		if tags, _ := q.DecodeTags(); len(tags) > 0 {
			fmt.Fprintf(&b, " (topics: %s)", strings.Join(tags, ", "))
		}
		b.WriteString(":\n")
		if q.ProblemText != nil && *q.ProblemText != "" {
			b.WriteString(*q.ProblemText)
			b.WriteString("\n")
		}
		b.WriteString("Solution:\n")
		b.WriteString(truncate(solution, 1500))
		b.WriteString("\n\n")
	}
	return b.String(), used
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func (s *studyGuideService) List(userID uint) ([]dto.StudyGuideSummaryResponse, error) {
	guides, err := s.guideRepo.FindByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching study guides: %w", err)
	}
	summaries := make([]dto.StudyGuideSummaryResponse, 0, len(guides))
	for i := range guides {
		var summary dto.StudyGuideSummaryResponse
		if err := copier.Copy(&summary, &guides[i]); err != nil {
			return nil, fmt.Errorf("error preparing study guide summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *studyGuideService) Get(userID, guideID uint) (*dto.StudyGuideResponse, error) {
	guide, err := s.findOwned(userID, guideID)
	if err != nil {
		return nil, err
	}
	return toStudyGuideResponse(guide)
}

func (s *studyGuideService) Rename(userID, guideID uint, title string) (*dto.StudyGuideResponse, error) {
	guide, err := s.findOwned(userID, guideID)
	if err != nil {
		return nil, err
	}
	guide.Title = title
	if err := s.guideRepo.Update(guide); err != nil {
		return nil, fmt.Errorf("failed to rename study guide: %w", err)
	}
	return toStudyGuideResponse(guide)
}

func (s *studyGuideService) Delete(userID, guideID uint) error {
	guide, err := s.findOwned(userID, guideID)
	if err != nil {
		return err
	}
	if err := s.guideRepo.Delete(guide.ID); err != nil {
		return fmt.Errorf("failed to delete study guide: %w", err)
	}
	return nil
}

func (s *studyGuideService) findOwned(userID, guideID uint) (*model.StudyGuide, error) {
	guide, err := s.guideRepo.FindByID(guideID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudyGuideNotFound
		}
		return nil, fmt.Errorf("error fetching study guide: %w", err)
	}
	if guide.UserID != userID {
		return nil, ErrStudyGuideNotFound
	}
	return guide, nil
}

func toStudyGuideResponse(guide *model.StudyGuide) (*dto.StudyGuideResponse, error) {
	var resp dto.StudyGuideResponse
	if err := copier.Copy(&resp, guide); err != nil {
		return nil, fmt.Errorf("error preparing study guide response: %w", err)
	}
	return &resp, nil
}
