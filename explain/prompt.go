package explain

import (
	"fmt"
	"strings"

	"github.com/poiesic/rapport/core"
)

// SimilaritiesMarker and DifferencesMarker head the list sections the
// narrator is asked to produce.
const (
	SimilaritiesMarker = "Similarities:"
	DifferencesMarker  = "Differences:"
)

const instructionsTemplate = `INSTRUCTIONS:
1. Write a single sentence explaining in the second person (addressing the current user as "you") why you and %[1]s might be good friends. Do not add a title, header, bullet points or numbers to this sentence. Do not use characters like **.
2. Under the heading "%[2]s", provide bullet points of what you both share in common, using second-person language (e.g. "You both enjoy traveling").
3. Under the heading "%[3]s", provide bullet points of any notable differences, also in second-person language (e.g. "You dislike loud noises, while %[1]s doesn't mind them").
4. Keep your response concise, friendly and encouraging.`

// BuildPrompt renders the narrator prompt for a selected pair.
func BuildPrompt(current, matched *core.UserProfile, score core.MatchCandidateScore) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are the user in this conversation, and you have a matched user named %s.\n", matched.Name)
	b.WriteString("Below are both of your survey responses:\n\n")
	b.WriteString("YOUR SURVEY RESPONSES:\n")
	for i, question := range core.SurveyQuestions {
		fmt.Fprintf(&b, "Question %d: %q\n", i+1, question)
		fmt.Fprintf(&b, "- Similarity Score: %d%%\n", score.PerFieldScores[i])
		fmt.Fprintf(&b, "- Your Answer: %s\n", oneLine(current.Answers[i]))
		fmt.Fprintf(&b, "- Matched User's Answer: %s\n\n", oneLine(matched.Answers[i]))
	}

	if current.AuxiliaryText != "" || matched.AuxiliaryText != "" {
		b.WriteString("BACKGROUND:\n")
		if current.AuxiliaryText != "" {
			fmt.Fprintf(&b, "- About you: %s\n", oneLine(current.AuxiliaryText))
		}
		if matched.AuxiliaryText != "" {
			fmt.Fprintf(&b, "- About %s: %s\n", matched.Name, oneLine(matched.AuxiliaryText))
		}
		if score.AuxiliaryScore != nil {
			fmt.Fprintf(&b, "- Background Similarity Score: %d%%\n", *score.AuxiliaryScore)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Overall Match Score: %d%%\n\n", score.CompositeScore)
	fmt.Fprintf(&b, instructionsTemplate, matched.Name, SimilaritiesMarker, DifferencesMarker)
	return b.String()
}

// oneLine keeps multi-line answers from breaking the prompt layout.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
