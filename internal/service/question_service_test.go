package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mvhoang/Solvio/internal/dto"
	"github.com/mvhoang/Solvio/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeQuestionRepo struct {
	mu        sync.Mutex
	questions map[uint]model.Question
	nextID    uint
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{questions: map[uint]model.Question{}, nextID: 1}
}

func (r *fakeQuestionRepo) Create(q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q.ID = r.nextID
	r.nextID++
	r.questions[q.ID] = *q
	return nil
}

func (r *fakeQuestionRepo) FindByID(id uint) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &q, nil
}

func (r *fakeQuestionRepo) FindByUser(userID uint) ([]model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Question
	for _, q := range r.questions {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) FindRecentByUser(userID uint, limit int) ([]model.Question, error) {
	out, _ := r.FindByUser(userID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeQuestionRepo) Update(q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questions[q.ID] = *q
	return nil
}

func (r *fakeQuestionRepo) Delete(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.questions, id)
	return nil
}

type fakeGemini struct {
	solution string
	err      error
}

func (f *fakeGemini) GenerateText(context.Context, string) (string, error) {
	return f.solution, f.err
}

func (f *fakeGemini) SolveProblem(context.Context, string, string, string) (string, error) {
	return f.solution, f.err
}

type fakeStorage struct{ deleted []string }

func (f *fakeStorage) UploadImage(_ context.Context, _ []byte, _ string) (string, error) {
	return "https://storage.googleapis.com/test/problems/img.png", nil
}

func (f *fakeStorage) DeleteImage(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func newTestQuestionService(repo *fakeQuestionRepo, gemini *fakeGemini) *questionService {
	return NewQuestionService(repo, gemini, NewStepParserService(), &fakeStorage{}).(*questionService)
}

func seedStepQuestion(t *testing.T, repo *fakeQuestionRepo, userID uint, data model.SolutionData) uint {
	t.Helper()
	q := model.Question{UserID: userID, ImageURL: "https://example.com/p.png", SolutionMode: model.SolutionModeStepByStep}
	require.NoError(t, q.EncodeSolution(data))
	require.NoError(t, repo.Create(&q))
	return q.ID
}

func TestCreateReturnsProcessingImmediately(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo, &fakeGemini{solution: "whatever"})

	resp, err := svc.Create(1, dto.CreateQuestionRequest{SolutionMode: model.SolutionModeSimilar}, "https://example.com/p.png")
	require.NoError(t, err)
	assert.Equal(t, model.SolutionStatusProcessing, resp.Status)
	assert.Empty(t, resp.Solution)
}

func TestSolveInBackgroundStepMode(t *testing.T) {
	repo := newFakeQuestionRepo()
	raw := "Step 1: Divide both sides by 2 | Hint: keep the equation balanced | Answer: x = 4\n" +
		"Step 2: Check the result | Hint: substitute x back in | Answer: 2*4+1 = 9"
	svc := newTestQuestionService(repo, &fakeGemini{solution: raw})
	id := seedStepQuestion(t, repo, 1, model.SolutionData{Status: model.SolutionStatusProcessing})

	svc.solveInBackground(id)

	stored, err := repo.FindByID(id)
	require.NoError(t, err)
	data, err := stored.DecodeSolution()
	require.NoError(t, err)
	assert.Empty(t, data.Status)
	assert.Equal(t, raw, data.RawSolution)
	assert.Equal(t, 2, data.TotalSteps)
	assert.Zero(t, data.CompletedSteps)
}

func TestSolveInBackgroundFailureMarksFailed(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo, &fakeGemini{err: fmt.Errorf("%w: boom", ErrLLMUnavailable)})
	id := seedStepQuestion(t, repo, 1, model.SolutionData{Status: model.SolutionStatusProcessing})

	svc.solveInBackground(id)

	stored, err := repo.FindByID(id)
	require.NoError(t, err)
	data, err := stored.DecodeSolution()
	require.NoError(t, err)
	assert.Equal(t, model.SolutionStatusFailed, data.Status)
	assert.Empty(t, data.Solution)
}

func TestGetStepsParsesStoredRawSolution(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo, &fakeGemini{})
	id := seedStepQuestion(t, repo, 1, model.SolutionData{
		RawSolution:    "Step 1: Solve for x | Hint: isolate x | Answer: x = 4",
		TotalSteps:     1,
		CompletedSteps: 0,
	})

	resp, err := svc.GetSteps(1, id)
	require.NoError(t, err)
	require.Len(t, resp.Steps, 1)
	assert.Equal(t, "Solve for x", resp.Steps[0].Instruction)
	assert.False(t, resp.Fallback)
}

func TestGetStepsHidesOtherUsersQuestions(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo, &fakeGemini{})
	id := seedStepQuestion(t, repo, 1, model.SolutionData{RawSolution: "Step 1: a | Hint: b | Answer: c", TotalSteps: 1})

	_, err := svc.GetSteps(2, id)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestGetStepsWhileProcessing(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo, &fakeGemini{})
	id := seedStepQuestion(t, repo, 1, model.SolutionData{Status: model.SolutionStatusProcessing})

	_, err := svc.GetSteps(1, id)
	assert.ErrorIs(t, err, ErrSolutionNotReady)
}

func TestGetStepsAfterFailedSolveIsTerminal(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo, &fakeGemini{})
	id := seedStepQuestion(t, repo, 1, model.SolutionData{Status: model.SolutionStatusFailed})

	_, err := svc.GetSteps(1, id)
	assert.ErrorIs(t, err, ErrSolutionFailed)
	assert.NotErrorIs(t, err, ErrSolutionNotReady, "failed must not read as still-processing")

	_, err = svc.UpdateProgress(1, id, 1)
	assert.ErrorIs(t, err, ErrSolutionFailed)
}

func TestUpdateProgressMonotonicAndBounded(t *testing.T) {
	repo := newFakeQuestionRepo()
	svc := newTestQuestionService(repo, &fakeGemini{})
	id := seedStepQuestion(t, repo, 1, model.SolutionData{
		RawSolution:    "Step 1: a | Hint: b | Answer: c\nStep 2: d | Hint: e | Answer: f",
		TotalSteps:     2,
		CompletedSteps: 1,
	})

	resp, err := svc.UpdateProgress(1, id, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.CompletedSteps)

	_, err = svc.UpdateProgress(1, id, 1)
	assert.ErrorIs(t, err, ErrProgressMovesBack)

	_, err = svc.UpdateProgress(1, id, 3)
	assert.ErrorIs(t, err, ErrProgressOutOfBounds)
}
