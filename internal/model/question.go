package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Solution modes supported for a question.
const (
	SolutionModeSimilar    = "similar"
	SolutionModeStepByStep = "step_by_step"
)

// SolutionStatusProcessing marks a question whose AI solution has not arrived
// yet. While this status is set the record carries no solution text and must
// be skipped when building study-guide context.
const SolutionStatusProcessing = "processing"

// SolutionStatusFailed marks a question whose background solve errored out.
const SolutionStatusFailed = "failed"

// SolutionData is the JSON payload stored in Question.SolutionData.
type SolutionData struct {
	Status         string `json:"status,omitempty"`
	Solution       string `json:"solution,omitempty"`
	RawSolution    string `json:"rawSolution,omitempty"`
	CompletedSteps int    `json:"completedSteps,omitempty"`
	TotalSteps     int    `json:"totalSteps,omitempty"`
}

type Question struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	UserID       uint           `json:"user_id" gorm:"not null;index"`
	ImageURL     string         `json:"image_url" gorm:"not null"`
	ProblemText  *string        `json:"problem_text,omitempty" gorm:"type:text"`
	SolutionMode string         `json:"solution_mode" gorm:"not null"` // "similar", "step_by_step"
	SolutionData datatypes.JSON `json:"solution_data" gorm:"type:jsonb"`
	Tags         datatypes.JSON `json:"tags,omitempty" gorm:"type:jsonb"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// DecodeSolution unmarshals the stored solution payload. An empty column
// decodes to the zero value.
func (q *Question) DecodeSolution() (SolutionData, error) {
	var data SolutionData
	if len(q.SolutionData) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(q.SolutionData, &data); err != nil {
		return SolutionData{}, err
	}
	return data, nil
}

// EncodeSolution replaces the stored solution payload.
func (q *Question) EncodeSolution(data SolutionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	q.SolutionData = datatypes.JSON(raw)
	return nil
}

// DecodeTags unmarshals the tags column into a string slice.
func (q *Question) DecodeTags() ([]string, error) {
	if len(q.Tags) == 0 {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(q.Tags, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// EncodeTags replaces the tags column.
func (q *Question) EncodeTags(tags []string) error {
	raw, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	q.Tags = datatypes.JSON(raw)
	return nil
}
