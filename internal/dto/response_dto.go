package dto

import "time"

type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type QuestionResponse struct {
	ID             uint      `json:"id"`
	ImageURL       string    `json:"image_url"`
	ProblemText    *string   `json:"problem_text,omitempty"`
	SolutionMode   string    `json:"solution_mode"`
	Status         string    `json:"status,omitempty"`
	Solution       string    `json:"solution,omitempty"`
	CompletedSteps int       `json:"completed_steps,omitempty"`
	TotalSteps     int       `json:"total_steps,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type StepResponse struct {
	Instruction string `json:"instruction"`
	Hint        string `json:"hint"`
	Answer      string `json:"answer"`
}

// StepsResponse carries the parsed walkthrough of a step-by-step question.
// Fallback is true when the steps came from the line heuristic rather than a
// well-formed parse; such steps carry placeholder hints and answers.
type StepsResponse struct {
	QuestionID     uint           `json:"question_id"`
	Steps          []StepResponse `json:"steps"`
	CompletedSteps int            `json:"completed_steps"`
	Fallback       bool           `json:"fallback,omitempty"`
}

type GradeResultResponse struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
}

type StudyGuideResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StudyGuideSummaryResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
