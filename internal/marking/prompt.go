package marking

import "fmt"

// markerSystemPrompt sets the examiner persona and the grading rules.
// The rules are part of the contract: credit only what is written, no
// inferred intent, explain why the answer misses the next band.
func markerSystemPrompt(maxMarks int) string {
	return fmt.Sprintf(`You are an experienced exam marker. Mark a SINGLE student answer strictly against the mark scheme excerpt provided.

MARKING INSTRUCTIONS:
1. Use the level descriptors from the mark scheme excerpt to determine the level, if provided.
2. Credit valid points from the indicative content even when phrased differently.
3. Do NOT infer student intent or award marks for material that is not explicitly present in the answer.
4. If the answer sits between two levels, use a best-fit judgement across the descriptors.
5. Be fair but rigorous: partial credit for partial answers. Do not rewrite the answer.
6. Briefly explain why this answer is NOT in the next higher band.

RETURN STRICT JSON ONLY:
{"awarded": <integer 0 to %d>, "rationale": "<why this mark was awarded>", "whyNotNextLevel": "<one or two sentences>"}`, maxMarks)
}

// markerUserMessage embeds the request payload after a short framing
// line so the service sees the structured contract verbatim.
func markerUserMessage(payload []byte) string {
	return "Mark the following answer. The JSON object carries the question, the relevant mark scheme excerpt, the student answer, and the maximum marks:\n\n" + string(payload)
}
