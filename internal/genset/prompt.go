package genset

import (
	"fmt"
	"strings"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
)

const setSystemPrompt = `You are an experienced A-level examiner writing exam-style practice questions.

Rules:
- Write questions for the given topic only, in the register of real past papers.
- Question text must be clear, self-contained, and free of markup.
- For multiple-choice sets, provide exactly 4 options per question with exactly one correct option. Distractors should reflect plausible misconceptions, not random values.
- For short-answer sets, assign each question between 2 and 6 marks according to its demand.
- For scenario sets, ground each question in a brief applied scenario and assign 6 marks.
- Imitate the phrasing format of any style cues given. Never copy their text.
- Return JSON only, matching the requested shape exactly.`

// buildUserMessage constructs the user message from the generation input.
func buildUserMessage(input Input, count int, cfg Config) string {
	var b strings.Builder

	switch input.Mode {
	case bank.ModeMCQ:
		fmt.Fprintf(&b, "Create %d multiple-choice questions for topic: %s.\n", count, input.TopicTitle)
	case bank.ModeShort:
		fmt.Fprintf(&b, "Create %d short-answer questions (2-6 marks each) for topic: %s.\n", count, input.TopicTitle)
	case bank.ModeScenario:
		fmt.Fprintf(&b, "Create %d scenario/application questions (6 marks each) for topic: %s.\n", count, input.TopicTitle)
	default:
		fmt.Fprintf(&b, "Create %d questions for topic: %s.\n", count, input.TopicTitle)
	}

	b.WriteString("\nStyle cues (imitate phrasing format only, do not copy text):\n")
	b.WriteString(buildCues(input.StyleCues, cfg.MaxStyleCues))

	return b.String()
}

// buildCues formats style examples for the prompt, respecting the max limit.
func buildCues(cues []string, max int) string {
	if len(cues) == 0 {
		return "None"
	}
	if max > 0 && len(cues) > max {
		cues = cues[:max]
	}
	return strings.Join(cues, "\n")
}
