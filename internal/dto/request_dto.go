package dto

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateQuestionRequest submits a new math problem. The image can arrive as a
// multipart file (handled by the controller) or as an already-hosted URL here.
type CreateQuestionRequest struct {
	ImageURL     string   `json:"image_url" binding:"omitempty,url"`
	ProblemText  *string  `json:"problem_text" binding:"omitempty,max=2000"`
	SolutionMode string   `json:"solution_mode" binding:"required,oneof=similar step_by_step"`
	Tags         []string `json:"tags" binding:"omitempty,max=10,dive,max=50"`
}

type UpdateQuestionTagsRequest struct {
	Tags []string `json:"tags" binding:"required,max=10,dive,max=50"`
}

// UpdateProgressRequest moves the completed-steps counter of a step-by-step
// question. The counter only ever moves forward.
type UpdateProgressRequest struct {
	CompletedSteps int `json:"completed_steps" binding:"required,min=1"`
}

// GradeAnswerRequest is the wire contract of the grading endpoint. The length
// bounds are hard limits; oversized requests are rejected before any LLM call.
type GradeAnswerRequest struct {
	UserAnswer      string `json:"user_answer" binding:"required,max=1000"`
	ExpectedAnswer  string `json:"expected_answer" binding:"required,max=500"`
	StepInstruction string `json:"step_instruction" binding:"required,max=1000"`
	ProblemContext  string `json:"problem_context" binding:"omitempty,max=500"`
}

type GenerateStudyGuideRequest struct {
	Title string `json:"title" binding:"omitempty,max=200"`
}

type RenameStudyGuideRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}
