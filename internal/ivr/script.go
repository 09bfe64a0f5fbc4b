package ivr

import (
	"net/url"
	"strconv"

	"github.com/ashasetu/ashasetu/internal/models"
)

// Twilio text-to-speech voices per language.
const (
	hindiVoice    = "Polly.Aditi"
	hindiLocale   = "hi-IN"
	englishVoice  = "Polly.Raveena"
	englishLocale = "en-IN"
)

// Gather timeouts in seconds: short for the yes/no prompt, longer while the
// caller formulates a question.
const (
	promptTimeout   = "5"
	questionTimeout = "10"
)

func voiceFor(lang models.Language) (voice, locale string) {
	if lang == models.LanguageEnglish {
		return englishVoice, englishLocale
	}
	return hindiVoice, hindiLocale
}

// Script text per language. The wording is part of the dialogue contract:
// the prompts must name the same keywords and digits the classifier accepts.

func initialPrompt(lang models.Language) string {
	if lang == models.LanguageEnglish {
		return "Do you have any questions? Say 'yes' or press 1. For emergency, press 2."
	}
	return "Kya aap kuch poochna chahti hain? Bolo 'haan' ya 1 dabayen. Emergency ke liye 2 dabayen."
}

func askQuestionPrompt(lang models.Language) string {
	if lang == models.LanguageEnglish {
		return "Yes, please ask your question."
	}
	return "Haan boliye, aap kya poochna chahti hain?"
}

func emergencyGuidance(lang models.Language) string {
	if lang == models.LanguageEnglish {
		return "This is an emergency. Please go to the nearest hospital immediately or call 102. I'm also informing your ASHA worker."
	}
	return "Yeh emergency hai. Turant nazdeeki hospital jayen ya 102 par call karein. Main aapke ASHA worker ko bhi inform kar rahi hoon."
}

func emergencyKeyedGuidance(lang models.Language) string {
	if lang == models.LanguageEnglish {
		return "Emergency alert sent. Please go to hospital immediately."
	}
	return "Emergency alert bhej di gayi hai. Turant hospital jayen."
}

func closingStatement(lang models.Language) string {
	if lang == models.LanguageEnglish {
		return "Thank you. Take care. Goodbye."
	}
	return "Dhanyavaad. Apna khayal rakhiye. Namaste."
}

func reofferPrompt(lang models.Language) string {
	if lang == models.LanguageEnglish {
		return "Any other questions? Say 'yes' or press 1."
	}
	return "Koi aur sawal? Bolo 'haan' ya 1 dabayen."
}

// continuationQuery carries the whole dialogue context to the next turn: the
// machine keeps no server-side session, so everything the next turn needs
// rides on the callback URL.
func continuationQuery(in TurnInput) string {
	q := url.Values{}
	q.Set("pid", in.PatientID)
	q.Set("week", strconv.Itoa(in.Week))
	q.Set("lang", string(in.Language))
	q.Set("name", in.Name)
	return q.Encode()
}

// turnPath is the action URL for the main dialogue turn handler, relative to
// the current document as the transport resolves it.
func turnPath(in TurnInput) string {
	return "/ivr/turn?" + continuationQuery(in)
}

// answerPath is the action URL for the question-answering handler.
func answerPath(in TurnInput) string {
	return "/ivr/answer?" + continuationQuery(in)
}
