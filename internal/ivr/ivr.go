// Package ivr implements the conversational voice dialogue for outreach calls.
//
// A call is a sequence of independent turns: the transport fetches a script,
// plays it, collects speech or a keypress, and re-invokes the turn endpoint
// with the caller's input plus the continuation parameters. No session state
// is held between turns; each turn rebuilds its context from the request and
// encodes the next turn's context on the action URL.
package ivr

import (
	"context"
	"log/slog"
	"time"

	"github.com/twilio/twilio-go/twiml"

	"github.com/ashasetu/ashasetu/internal/models"
)

// State identifies where the dialogue stands after a turn.
type State string

const (
	// StateGreeting is the implicit state of a turn with no caller input yet.
	StateGreeting State = "greeting"
	// StateAwaitingInitialResponse means the yes/1/emergency/2 prompt was posed.
	StateAwaitingInitialResponse State = "awaiting_initial_response"
	// StateAwaitingQuestion means the caller was invited to ask a question.
	StateAwaitingQuestion State = "awaiting_question"
	// StateEmergency means emergency guidance was spoken and an alert raised.
	StateEmergency State = "emergency"
	// StateTerminated means the closing statement was spoken.
	StateTerminated State = "terminated"
)

// Terminal reports whether the dialogue ends after this state.
func (s State) Terminal() bool {
	return s == StateEmergency || s == StateTerminated
}

// TurnInput is the per-turn dialogue context, rebuilt from the inbound
// request parameters. It is never persisted.
type TurnInput struct {
	PatientID string
	Name      string
	Week      int
	Language  models.Language
	Speech    string
	Digits    string
}

// TurnResult is the outcome of one turn: the spoken script and the state the
// dialogue moves to.
type TurnResult struct {
	NextState State
	Escalated bool
	Verbs     []twiml.Element
}

// ContentGenerator produces the spoken utterances of a call.
type ContentGenerator interface {
	HealthTip(ctx context.Context, week int, lang models.Language) (string, error)
	AnswerQuestion(ctx context.Context, question string, week int, lang models.Language) (string, error)
	FallbackTip(lang models.Language) string
	FallbackAnswer(lang models.Language) string
}

// Escalator records an emergency alert for the patient.
type Escalator interface {
	Escalate(patientID, patientName string, week int, now time.Time)
}

// Session drives the turn-by-turn dialogue logic. It is stateless and safe
// for concurrent use across calls.
type Session struct {
	content   ContentGenerator
	escalator Escalator
}

// NewSession creates a Session with its collaborators.
func NewSession(content ContentGenerator, escalator Escalator) *Session {
	return &Session{content: content, escalator: escalator}
}

// Turn handles the main dialogue endpoint. With no caller input it opens the
// call; with speech or digits it classifies them. Every branch produces
// either exactly one input-collection directive or a terminal closing
// statement, never an empty script.
func (s *Session) Turn(ctx context.Context, in TurnInput, now time.Time) TurnResult {
	voice, locale := voiceFor(in.Language)
	say := func(text string) twiml.Element {
		return &twiml.VoiceSay{Message: text, Voice: voice, Language: locale}
	}

	// Opening turn: speak the health tip, then pose the prompt.
	if in.Speech == "" && in.Digits == "" {
		tip, err := s.content.HealthTip(ctx, in.Week, in.Language)
		if err != nil {
			slog.Warn("Health tip generation failed, using fallback", "error", err, "patientID", in.PatientID, "week", in.Week)
			tip = s.content.FallbackTip(in.Language)
		}
		gather := &twiml.VoiceGather{
			Input:         "speech dtmf",
			Timeout:       promptTimeout,
			SpeechTimeout: "auto",
			Action:        turnPath(in),
			Language:      locale,
			InnerElements: []twiml.Element{say(initialPrompt(in.Language))},
		}
		return TurnResult{
			NextState: StateAwaitingInitialResponse,
			Verbs:     []twiml.Element{say(tip), gather},
		}
	}

	if in.Speech != "" {
		switch ClassifySpeech(in.Speech) {
		case IntentEmergency:
			s.escalator.Escalate(in.PatientID, in.Name, in.Week, now)
			return TurnResult{
				NextState: StateEmergency,
				Escalated: true,
				Verbs:     []twiml.Element{say(emergencyGuidance(in.Language))},
			}
		case IntentAffirmative:
			gather := &twiml.VoiceGather{
				Input:         "speech",
				Timeout:       questionTimeout,
				SpeechTimeout: "auto",
				Action:        answerPath(in),
				Language:      locale,
				InnerElements: []twiml.Element{say(askQuestionPrompt(in.Language))},
			}
			return TurnResult{
				NextState: StateAwaitingQuestion,
				Verbs:     []twiml.Element{gather},
			}
		}
	}

	switch in.Digits {
	case "1":
		// Repeat the tip and loop back to the opening prompt.
		tip, err := s.content.HealthTip(ctx, in.Week, in.Language)
		if err != nil {
			slog.Warn("Health tip generation failed, using fallback", "error", err, "patientID", in.PatientID, "week", in.Week)
			tip = s.content.FallbackTip(in.Language)
		}
		repeat := TurnInput{PatientID: in.PatientID, Name: in.Name, Week: in.Week, Language: in.Language}
		return TurnResult{
			NextState: StateAwaitingInitialResponse,
			Verbs: []twiml.Element{
				say(tip),
				&twiml.VoiceRedirect{Url: turnPath(repeat)},
			},
		}
	case "2":
		s.escalator.Escalate(in.PatientID, in.Name, in.Week, now)
		return TurnResult{
			NextState: StateEmergency,
			Escalated: true,
			Verbs: []twiml.Element{
				say(emergencyKeyedGuidance(in.Language)),
				say(closingStatement(in.Language)),
			},
		}
	}

	// Deliberate catch-all: unmatched speech or digits end the call politely.
	return TurnResult{
		NextState: StateTerminated,
		Verbs:     []twiml.Element{say(closingStatement(in.Language))},
	}
}

// Answer handles the question endpoint: any speech is treated as the
// question, answered, and the yes/1 prompt is re-offered. Missing speech
// falls through to the catch-all termination.
func (s *Session) Answer(ctx context.Context, in TurnInput, now time.Time) TurnResult {
	voice, locale := voiceFor(in.Language)
	say := func(text string) twiml.Element {
		return &twiml.VoiceSay{Message: text, Voice: voice, Language: locale}
	}

	if in.Speech == "" {
		return TurnResult{
			NextState: StateTerminated,
			Verbs:     []twiml.Element{say(closingStatement(in.Language))},
		}
	}

	answer, err := s.content.AnswerQuestion(ctx, in.Speech, in.Week, in.Language)
	if err != nil {
		slog.Warn("Answer generation failed, using fallback", "error", err, "patientID", in.PatientID)
		answer = s.content.FallbackAnswer(in.Language)
	}

	gather := &twiml.VoiceGather{
		Input:         "speech dtmf",
		Timeout:       promptTimeout,
		SpeechTimeout: "auto",
		Action:        turnPath(in),
		Language:      locale,
		InnerElements: []twiml.Element{say(reofferPrompt(in.Language))},
	}
	return TurnResult{
		NextState: StateAwaitingInitialResponse,
		Verbs:     []twiml.Element{say(answer), gather},
	}
}

// Render serializes a turn's verbs to TwiML.
func Render(result TurnResult) (string, error) {
	return twiml.Voice(result.Verbs)
}
