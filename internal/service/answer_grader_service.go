package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mvhoang/Solvio/internal/dto"
	"github.com/rs/zerolog/log"
)

const gradeFallbackFeedback = "Answer evaluated"

// NormalizeAnswer prepares an answer string for loose comparison: trims,
// lower-cases, strips all whitespace and trailing sentence punctuation.
// Normalizing an already-normalized string returns it unchanged.
func NormalizeAnswer(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), ".,;:!?")
}

// AnswersRoughlyMatch is the local leniency heuristic: normalized equality or
// non-empty substring containment either way. Containment over-accepts
// ("2" matches "12"), which is why the semantic grader has the final word;
// this helper is only safe as an accept-on-equality pre-check.
func AnswersRoughlyMatch(userAnswer, expectedAnswer string) bool {
	ua := NormalizeAnswer(userAnswer)
	ea := NormalizeAnswer(expectedAnswer)
	if ua == "" || ea == "" {
		return false
	}
	return ua == ea || strings.Contains(ua, ea) || strings.Contains(ea, ua)
}

// AnswerGraderService decides whether a student's answer for a step should be
// accepted, delegating the judgment to the LLM gateway.
type AnswerGraderService interface {
	Grade(ctx context.Context, req dto.GradeAnswerRequest) (dto.GradeResultResponse, error)
}

type answerGraderService struct {
	generator TextGenerator
}

func NewAnswerGraderService(generator TextGenerator) AnswerGraderService {
	return &answerGraderService{generator: generator}
}

const gradePolicyPrompt = `You are grading one step of a student's math walkthrough. Decide whether the student's answer should be accepted for this step.

Accept the answer when:
- it is mathematically equivalent to the expected answer under a different notation or representation (2/4, 1/2 and 0.5 are all the same answer)
- it differs only in minor formatting (spacing, capitalization, punctuation, "x=4" vs "x = 4")
- it is a partial answer that demonstrates correct understanding of the concept this step tests
- it is a simplified or unsimplified form of an equivalent expression

Reject the answer only when it reflects a fundamental misunderstanding or is substantively wrong.

Step instruction: %s
Expected answer: %s
Student's answer: %s
%s
Respond with ONLY a JSON object: {"correct": <true or false>, "feedback": "<one or two encouraging sentences>"}`

// Grade evaluates the student's answer against the expected answer. A failed
// gateway call is returned as an error distinct from an "incorrect" verdict;
// the caller must not treat it as a grading result.
func (s *answerGraderService) Grade(ctx context.Context, req dto.GradeAnswerRequest) (dto.GradeResultResponse, error) {
	// Exact matches after normalization never need the model's judgment.
	if ua := NormalizeAnswer(req.UserAnswer); ua != "" && ua == NormalizeAnswer(req.ExpectedAnswer) {
		log.Debug().Msg("Answers equal after normalization, accepted without a model call")
		return dto.GradeResultResponse{Correct: true, Feedback: "Exactly right. On to the next step!"}, nil
	}

	contextLine := ""
	if req.ProblemContext != "" {
		contextLine = fmt.Sprintf("Problem context: %s\n", req.ProblemContext)
	}
	prompt := fmt.Sprintf(gradePolicyPrompt, req.StepInstruction, req.ExpectedAnswer, req.UserAnswer, contextLine)

	raw, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Msg("Answer grading call to LLM gateway failed")
		return dto.GradeResultResponse{}, fmt.Errorf("grading failed: %w", err)
	}

	return parseGradeResponse(raw), nil
}

// parseGradeResponse turns raw model output into a grading result. The model
// frequently wraps the JSON in a fenced code block; strip the fences before
// decoding. If decoding still fails, scan the raw text for a correct:true
// token rather than failing the whole grading attempt.
func parseGradeResponse(raw string) dto.GradeResultResponse {
	cleaned := stripCodeFences(raw)

	var result struct {
		Correct  bool   `json:"correct"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(cleaned), &result); err == nil {
		return dto.GradeResultResponse{Correct: result.Correct, Feedback: result.Feedback}
	}

	lower := strings.ToLower(raw)
	correct := strings.Contains(lower, `"correct": true`) || strings.Contains(lower, `"correct":true`)
	log.Warn().Str("rawResponse", raw).Bool("correct", correct).Msg("Grade response was not valid JSON, used raw-text fallback")
	return dto.GradeResultResponse{Correct: correct, Feedback: gradeFallbackFeedback}
}

// stripCodeFences removes a leading ```/```json line and a trailing ``` line.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
