package service

import (
	"regexp"
	"strings"
)

// Step is one unit of a guided solution.
type Step struct {
	Instruction string
	Hint        string
	Answer      string
}

// StepSource tells callers whether the steps came from a well-formed parse or
// from the line heuristic.
type StepSource int

const (
	StepSourcePattern StepSource = iota
	StepSourceFallback
)

// ParsedSteps is the result of parsing one step-by-step solution text.
type ParsedSteps struct {
	Steps  []Step
	Source StepSource
}

// The model is instructed to emit one step per line as
// "Step <n>: <instruction> | Hint: <hint> | Answer: <answer>". On input the
// pipes are optional; the Hint:/Answer: keywords alone delimit the fields.
var stepLinePattern = regexp.MustCompile(`(?im)^\s*step\s*\d+\s*:\s*(.*?)\s*\|?\s*hint\s*:\s*(.*?)\s*\|?\s*answer\s*:\s*(.*?)\s*$`)

const (
	fallbackStepLimit  = 4
	fallbackStepHint   = "Think about the mathematical principles involved."
	fallbackStepAnswer = "Check your work carefully"
)

type StepParserService interface {
	Parse(text string) ParsedSteps
}

type stepParserService struct{}

func NewStepParserService() StepParserService {
	return &stepParserService{}
}

// Parse extracts an ordered sequence of steps from free-form model output.
// When the text contains zero pattern matches, up to the first four non-empty
// lines become placeholder steps so a non-empty solution never yields an
// empty walkthrough. The fallback trigger is the match count, not the content
// of captured fields. Empty or whitespace-only input yields zero steps.
func (s *stepParserService) Parse(text string) ParsedSteps {
	if strings.TrimSpace(text) == "" {
		return ParsedSteps{Source: StepSourcePattern}
	}

	matches := stepLinePattern.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		steps := make([]Step, 0, len(matches))
		for _, m := range matches {
			steps = append(steps, Step{
				Instruction: strings.TrimSpace(m[1]),
				Hint:        strings.TrimSpace(m[2]),
				Answer:      strings.TrimSpace(m[3]),
			})
		}
		return ParsedSteps{Steps: steps, Source: StepSourcePattern}
	}

	var steps []Step
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		steps = append(steps, Step{
			Instruction: line,
			Hint:        fallbackStepHint,
			Answer:      fallbackStepAnswer,
		})
		if len(steps) == fallbackStepLimit {
			break
		}
	}
	return ParsedSteps{Steps: steps, Source: StepSourceFallback}
}
