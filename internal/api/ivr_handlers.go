package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/twilio/twilio-go/twiml"

	"github.com/ashasetu/ashasetu/internal/gestation"
	"github.com/ashasetu/ashasetu/internal/ivr"
	"github.com/ashasetu/ashasetu/internal/models"
	"github.com/ashasetu/ashasetu/internal/util"
)

// turnInputFromRequest rebuilds the per-turn dialogue context from the
// request parameters. Continuation parameters ride on the query string;
// Twilio posts the caller's speech and keypad input as form fields.
func turnInputFromRequest(r *http.Request) ivr.TurnInput {
	week, err := strconv.Atoi(r.FormValue("week"))
	if err != nil || week < 0 {
		week = 0
	}
	return ivr.TurnInput{
		PatientID: r.FormValue("pid"),
		Name:      r.FormValue("name"),
		Week:      week,
		Language:  models.NormalizeLanguage(r.FormValue("lang")),
		Speech:    r.FormValue("SpeechResult"),
		Digits:    r.FormValue("Digits"),
	}
}

func (s *Server) ivrTurnHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	in := turnInputFromRequest(r)
	slog.Debug("Server.ivrTurnHandler: processing turn", "patientID", in.PatientID, "week", in.Week, "hasSpeech", in.Speech != "", "digits", in.Digits)

	result := s.session.Turn(r.Context(), in, time.Now())
	slog.Info("Server.ivrTurnHandler: turn complete", "patientID", in.PatientID, "nextState", result.NextState, "escalated", result.Escalated)

	xml, err := ivr.Render(result)
	writeTwiMLResponse(w, xml, err)
}

func (s *Server) ivrAnswerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	in := turnInputFromRequest(r)
	slog.Debug("Server.ivrAnswerHandler: processing question", "patientID", in.PatientID, "week", in.Week, "hasSpeech", in.Speech != "")

	result := s.session.Answer(r.Context(), in, time.Now())
	slog.Info("Server.ivrAnswerHandler: answer complete", "patientID", in.PatientID, "nextState", result.NextState)

	xml, err := ivr.Render(result)
	writeTwiMLResponse(w, xml, err)
}

// callStatusHandler receives Twilio's status callback and records the final
// call outcome. Unknown call SIDs are acknowledged anyway; Twilio retries
// non-2xx responses and the callback can race the dispatch log write.
func (s *Server) callStatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sid := r.FormValue("CallSid")
	status := r.FormValue("CallStatus")
	duration, err := strconv.Atoi(r.FormValue("CallDuration"))
	if err != nil {
		duration = 0
	}
	if sid == "" {
		slog.Warn("Server.callStatusHandler: callback without CallSid")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.store.UpdateCallOutcome(sid, status, duration); err != nil {
		slog.Error("Server.callStatusHandler: failed to record call outcome", "error", err, "sid", sid, "status", status)
	} else {
		slog.Info("Server.callStatusHandler: call outcome recorded", "sid", sid, "status", status, "duration", duration)
	}
	w.WriteHeader(http.StatusNoContent)
}

// WhatsApp reply texts for the inbound webhook.
func whatsappEmergencyReply(lang models.Language) string {
	if lang == models.LanguageEnglish {
		return "This is an emergency. Please call 102 immediately or go to the nearest hospital. Your ASHA worker has been notified."
	}
	return "Yeh emergency hai. Turant 102 par call karein ya nazdeeki hospital jayen. Aapke ASHA worker ko inform kar diya gaya hai."
}

func whatsappUnknownSenderReply() string {
	return "Namaste! This number is not enrolled with AshaSetu. Please contact your ASHA worker to register."
}

// whatsappInboundHandler handles Twilio's inbound WhatsApp webhook. Emergency
// keywords escalate and get static guidance; any other text from an enrolled
// patient is answered by the content generator. The reply rides back as TwiML.
func (s *Server) whatsappInboundHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body := strings.TrimSpace(r.FormValue("Body"))
	from := strings.TrimPrefix(r.FormValue("From"), "whatsapp:")
	if body == "" || from == "" {
		xml, err := twiml.Messages(nil)
		writeTwiMLResponse(w, xml, err)
		return
	}

	patient := s.matchPatientByPhone(from)
	if patient == nil {
		slog.Info("Server.whatsappInboundHandler: message from unenrolled number")
		s.replyMessage(w, whatsappUnknownSenderReply())
		return
	}

	now := time.Now()
	week := gestation.Week(patient.LMPDate, now)

	if ivr.ClassifySpeech(body) == ivr.IntentEmergency {
		slog.Warn("Server.whatsappInboundHandler: emergency keyword received", "patientID", patient.ID, "week", week)
		s.escalator.Escalate(patient.ID, patient.Name, week, now)
		s.replyMessage(w, whatsappEmergencyReply(patient.Language))
		return
	}

	answer, err := s.content.AnswerQuestion(r.Context(), body, week, patient.Language)
	if err != nil {
		slog.Warn("Server.whatsappInboundHandler: answer generation failed, using fallback", "error", err, "patientID", patient.ID)
		answer = s.content.FallbackAnswer(patient.Language)
	}
	slog.Info("Server.whatsappInboundHandler: replied", "patientID", patient.ID, "week", week)
	s.replyMessage(w, answer)
}

// matchPatientByPhone finds the enrolled patient whose number shares the
// sender's last 10 digits. Returns nil when no patient matches.
func (s *Server) matchPatientByPhone(phone string) *models.Patient {
	patients, err := s.store.ListPatients()
	if err != nil {
		slog.Error("Server.matchPatientByPhone: failed to list patients", "error", err)
		return nil
	}
	for i := range patients {
		if util.SameSubscriber(patients[i].Phone, phone) {
			return &patients[i]
		}
	}
	return nil
}

func (s *Server) replyMessage(w http.ResponseWriter, body string) {
	xml, err := twiml.Messages([]twiml.Element{
		&twiml.MessagingMessage{Body: body},
	})
	writeTwiMLResponse(w, xml, err)
}
