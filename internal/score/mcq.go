package score

// MCQ scores a multiple-choice attempt: one mark per pick matching its
// answer key. Picks beyond the key list are ignored; a pick of -1 means
// the question was left unanswered. Max is the number of questions.
func MCQ(answerKeys, picked []int) Result {
	raw := 0
	for i, key := range answerKeys {
		if i < len(picked) && picked[i] == key {
			raw++
		}
	}
	return NewResult(raw, len(answerKeys))
}
