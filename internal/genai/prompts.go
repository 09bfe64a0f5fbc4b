package genai

import (
	"fmt"

	"github.com/ashasetu/ashasetu/internal/models"
)

// System prompts framing every generation as an ASHA worker speaking to an
// enrolled patient.
const (
	tipSystemPrompt      = "You are a warm, caring ASHA health worker speaking to a pregnant woman on a phone call. Speak naturally, never robotically."
	answerSystemPrompt   = "You are an ASHA health worker answering a pregnant woman's question over the phone. Be warm, clear, and actionable."
	reminderSystemPrompt = "You are an ASHA health worker texting a pregnant woman on WhatsApp. Write like a real person texting, not a broadcast."
)

func languageLabel(lang models.Language) string {
	if lang == models.LanguageHindi {
		return "Hindi (romanized, as spoken)"
	}
	return "English"
}

// healthTipPrompt asks for the short spoken tip that opens a scheduled call.
func healthTipPrompt(week int, lang models.Language) string {
	return fmt.Sprintf(`Generate a friendly, conversational health tip for a pregnant woman at week %d.
Language: %s
Tone: Warm, caring ASHA worker
Length: 60-80 words
Include:
- Greeting with "Namaste"
- 1-2 specific tips for this week
- Encouragement
- Natural speaking style (not robotic)`, week, languageLabel(lang))
}

// answerPrompt asks for a spoken answer to a free-form patient question.
func answerPrompt(question string, week int, lang models.Language) string {
	return fmt.Sprintf(`Answer this pregnancy question:
Question: %q
Pregnancy week: %d
Language: %s
Length: 40-60 words
If it describes an emergency symptom, tell her to see a doctor immediately.`, question, week, languageLabel(lang))
}

// reminderPrompt asks for the WhatsApp reminder body.
func reminderPrompt(name string, week int, lang models.Language) string {
	return fmt.Sprintf(`Create a caring WhatsApp reminder message for a pregnant woman.
Name: %s
Week: %d
Language: %s
Length: 100-120 words
Include:
- Warm greeting
- 2-3 health tips for this week
- Reminder to take medications
- Emoji (use sparingly)
- "Reply with any questions"`, name, week, languageLabel(lang))
}

// Static fallbacks keep outreach flowing when generation fails. They carry no
// week-specific advice on purpose: generic care guidance is always safe.

// FallbackTip is the spoken tip used when tip generation fails.
func (c *Client) FallbackTip(lang models.Language) string {
	return fallbackTip(lang)
}

// FallbackAnswer is the spoken reply used when answer generation fails.
func (c *Client) FallbackAnswer(lang models.Language) string {
	return fallbackAnswer(lang)
}

// FallbackReminder is the WhatsApp body used when reminder generation fails.
func (c *Client) FallbackReminder(lang models.Language) string {
	return fallbackReminder(lang)
}

func fallbackTip(lang models.Language) string {
	if lang == models.LanguageHindi {
		return "Namaste! Main aapki ASHA worker hoon. Khana time par khayen, paani zyada piyen, aur apni dawai lena na bhoolen. Koi bhi problem ho to doctor ko zaroor batayen."
	}
	return "Namaste! This is your ASHA worker. Please eat on time, drink plenty of water, and remember to take your medicines. If anything feels wrong, tell your doctor right away."
}

func fallbackAnswer(lang models.Language) string {
	if lang == models.LanguageHindi {
		return "Maaf kijiye, main abhi aapka sawal samajh nahi payi. Kripya apne doctor ya ASHA worker se poochhiye."
	}
	return "Sorry, I couldn't understand. Please ask your doctor or ASHA worker."
}

func fallbackReminder(lang models.Language) string {
	if lang == models.LanguageHindi {
		return "Namaste! Aapki ASHA worker ki taraf se yaad dila rahi hoon: apni dawai time par lijiye, achha khana khaiye, aur aaram kijiye. Koi sawal ho to reply kariye."
	}
	return "Namaste! A reminder from your ASHA worker: take your medicines on time, eat well, and rest. Reply with any questions."
}
