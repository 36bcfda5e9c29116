package marking

import (
	"math"
	"strings"

	"github.com/AndyVanLandhof/psychprep/internal/bank"
	"github.com/AndyVanLandhof/psychprep/internal/score"
)

const (
	// expectedShortAnswerWords is the answer length treated as worth
	// full credit for short/scenario estimates.
	expectedShortAnswerWords = 25

	// expectedEssayWords is the essay length treated as worth full
	// credit.
	expectedEssayWords = 400

	// essayMaxMarks is the standard 16-mark essay ceiling.
	essayMaxMarks = 16
)

// HeuristicAward estimates a mark from answer length alone. Used when
// the marking service or its response fails; the learner still receives
// a score rather than an error.
func HeuristicAward(mode bank.Mode, answer string, maxMarks int) int {
	words := countWords(answer)
	switch mode {
	case bank.ModeEssay:
		if maxMarks <= 0 {
			maxMarks = essayMaxMarks
		}
		award := int(math.Round(float64(words) / expectedEssayWords * float64(maxMarks)))
		return min(award, maxMarks)
	default:
		if maxMarks <= 0 {
			return 0
		}
		award := int(math.Round(float64(words) / expectedShortAnswerWords * float64(maxMarks)))
		return min(award, maxMarks)
	}
}

func heuristicOutcome(mode bank.Mode, req Request) Outcome {
	maxMarks := req.MaxMarks
	if mode == bank.ModeEssay && maxMarks <= 0 {
		maxMarks = essayMaxMarks
	}
	res := score.NewResult(HeuristicAward(mode, req.StudentAnswer, maxMarks), maxMarks)
	return Outcome{Result: res, Source: SourceHeuristic}
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
