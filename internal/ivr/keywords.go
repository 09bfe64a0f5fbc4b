package ivr

import "strings"

// Intent is the category assigned to a caller's transcribed speech.
type Intent int

const (
	// IntentNone means no keyword matched; the catch-all branch applies.
	IntentNone Intent = iota
	// IntentEmergency means the caller signaled an emergency.
	IntentEmergency
	// IntentAffirmative means the caller wants to ask a question.
	IntentAffirmative
)

// Keyword tables are matched as case-insensitive substrings. The order of
// intentRules is the priority order: emergency always wins over affirmative,
// so "yes, this is an emergency" escalates.
var (
	emergencyKeywords   = []string{"emergency", "help", "khoon", "dard"}
	affirmativeKeywords = []string{"yes", "haan", "question", "puchna"}
)

var intentRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentEmergency, emergencyKeywords},
	{IntentAffirmative, affirmativeKeywords},
}

// ClassifySpeech assigns an intent to transcribed speech, first match wins.
func ClassifySpeech(speech string) Intent {
	lowered := strings.ToLower(speech)
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lowered, kw) {
				return rule.intent
			}
		}
	}
	return IntentNone
}
