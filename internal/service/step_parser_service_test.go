package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWellFormedSteps(t *testing.T) {
	parser := NewStepParserService()

	text := "Step 1: Solve for x | Hint: isolate x | Answer: x = 4\nStep 2: Verify | Hint: substitute back | Answer: yes"
	parsed := parser.Parse(text)

	require.Equal(t, StepSourcePattern, parsed.Source)
	require.Len(t, parsed.Steps, 2)
	assert.Equal(t, Step{Instruction: "Solve for x", Hint: "isolate x", Answer: "x = 4"}, parsed.Steps[0])
	assert.Equal(t, Step{Instruction: "Verify", Hint: "substitute back", Answer: "yes"}, parsed.Steps[1])
}

func TestParseReturnsAllStepsInOrder(t *testing.T) {
	parser := NewStepParserService()

	var b strings.Builder
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "Step %d: instruction %d | Hint: hint %d | Answer: answer %d\n", i, i, i, i)
	}
	parsed := parser.Parse(b.String())

	require.Equal(t, StepSourcePattern, parsed.Source)
	require.Len(t, parsed.Steps, 7)
	for i, step := range parsed.Steps {
		assert.Equal(t, fmt.Sprintf("instruction %d", i+1), step.Instruction)
		assert.Equal(t, fmt.Sprintf("answer %d", i+1), step.Answer)
	}
}

func TestParseKeywordsCaseInsensitive(t *testing.T) {
	parser := NewStepParserService()

	parsed := parser.Parse("STEP 1: Factor the quadratic | HINT: look for two numbers | ANSWER: (x+2)(x+3)")

	require.Equal(t, StepSourcePattern, parsed.Source)
	require.Len(t, parsed.Steps, 1)
	assert.Equal(t, "Factor the quadratic", parsed.Steps[0].Instruction)
	assert.Equal(t, "(x+2)(x+3)", parsed.Steps[0].Answer)
}

func TestParseAcceptsMissingPipeSeparators(t *testing.T) {
	parser := NewStepParserService()

	parsed := parser.Parse("Step 1: Solve for x Hint: isolate x Answer: x = 4")

	require.Equal(t, StepSourcePattern, parsed.Source)
	require.Len(t, parsed.Steps, 1)
	assert.Equal(t, Step{Instruction: "Solve for x", Hint: "isolate x", Answer: "x = 4"}, parsed.Steps[0])
}

func TestParseMixedPipeAndPipelessLines(t *testing.T) {
	parser := NewStepParserService()

	text := "Step 1: Divide both sides by 2 | Hint: keep it balanced | Answer: x = 4\n" +
		"Step 2: Verify Hint: substitute back Answer: yes"
	parsed := parser.Parse(text)

	require.Equal(t, StepSourcePattern, parsed.Source)
	require.Len(t, parsed.Steps, 2)
	assert.Equal(t, Step{Instruction: "Divide both sides by 2", Hint: "keep it balanced", Answer: "x = 4"}, parsed.Steps[0])
	assert.Equal(t, Step{Instruction: "Verify", Hint: "substitute back", Answer: "yes"}, parsed.Steps[1])
}

func TestParseFallbackCapsAtFourLines(t *testing.T) {
	parser := NewStepParserService()

	text := "line one\nline two\n\nline three\nline four\nline five\nline six"
	parsed := parser.Parse(text)

	require.Equal(t, StepSourceFallback, parsed.Source)
	require.Len(t, parsed.Steps, 4)
	assert.Equal(t, "line one", parsed.Steps[0].Instruction)
	assert.Equal(t, "line four", parsed.Steps[3].Instruction)
	for _, step := range parsed.Steps {
		assert.Equal(t, "Think about the mathematical principles involved.", step.Hint)
		assert.Equal(t, "Check your work carefully", step.Answer)
	}
}

func TestParseFallbackFewerThanFourLines(t *testing.T) {
	parser := NewStepParserService()

	parsed := parser.Parse("first thing\nsecond thing")

	require.Equal(t, StepSourceFallback, parsed.Source)
	require.Len(t, parsed.Steps, 2)
	assert.Equal(t, "first thing", parsed.Steps[0].Instruction)
	assert.Equal(t, "second thing", parsed.Steps[1].Instruction)
}

// A line that names a step but drops the hint/answer separators must not
// match; the trigger for the fallback is the match count, not field content.
func TestParsePartialPatternStillFallsBack(t *testing.T) {
	parser := NewStepParserService()

	parsed := parser.Parse("Step 1: do something\nStep 2: do something else")

	require.Equal(t, StepSourceFallback, parsed.Source)
	require.Len(t, parsed.Steps, 2)
	assert.Equal(t, "Step 1: do something", parsed.Steps[0].Instruction)
	assert.Equal(t, "Check your work carefully", parsed.Steps[0].Answer)
}

func TestParseEmptyInput(t *testing.T) {
	parser := NewStepParserService()

	assert.Empty(t, parser.Parse("").Steps)
	assert.Empty(t, parser.Parse("   \n\t  \n").Steps)
}
