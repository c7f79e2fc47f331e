// Package moderation classifies outgoing message content for risk.
//
// Text matching is substring-based and case-insensitive, with no word
// boundary awareness: a configured phrase embedded in a longer benign word
// will match. That is a known limitation accepted for simplicity over
// false-positive rate.
package moderation

import "strings"

// Match is a positive text classification.
type Match struct {
	Term     string `json:"matched_term"`
	Category string `json:"category"`
}

// Category names, also used as flag reasons and metric labels.
const (
	CategoryViolence  = "violence"
	CategorySecrecy   = "secret-keeping"
	CategorySexual    = "sexual"
	CategoryBullying  = "bullying"
	CategorySelfWorth = "self-worth"
)

// lexicon is checked in declaration order; the first matching category wins,
// and within a category the first matching phrase wins. Phrases are stored
// lowercase, Danish first with English equivalents.
var lexicon = []struct {
	category string
	phrases  []string
}{
	{CategoryViolence, []string{
		"slå dig", "slår dig", "dræbe dig", "gøre dig fortræd", "banke dig",
		"kill you", "hurt you", "beat you up", "punch you",
	}},
	{CategorySecrecy, []string{
		"vores hemmelighed", "sig det ikke til", "fortæl det ikke til", "ikke sige det til dine forældre",
		"our secret", "don't tell your parents", "don't tell anyone", "keep this between us",
	}},
	{CategorySexual, []string{
		"send et billede af dig", "uden tøj", "send nøgenbillede",
		"send me a picture of you", "without clothes", "send nudes",
	}},
	{CategoryBullying, []string{
		"ingen kan lide dig", "du er dum", "du er grim", "alle hader dig",
		"nobody likes you", "you are stupid", "you're ugly", "everyone hates you",
	}},
	{CategorySelfWorth, []string{
		"du er intet værd", "verden er bedre uden dig", "gør en ende på det",
		"you are worthless", "better off without you", "end it all",
	}},
}

// ScanText normalizes the text and tests it against the lexicon. It returns
// the first match in the fixed category order, or ok=false. Pure and safe on
// empty input.
func ScanText(text string) (Match, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Match{}, false
	}

	for _, entry := range lexicon {
		for _, phrase := range entry.phrases {
			if strings.Contains(normalized, phrase) {
				return Match{Term: phrase, Category: entry.category}, true
			}
		}
	}
	return Match{}, false
}
