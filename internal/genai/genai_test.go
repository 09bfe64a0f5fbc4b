package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/ashasetu/ashasetu/internal/models"
)

type fakeCompletions struct {
	lastParams openai.ChatCompletionNewParams
	reply      string
	err        error
}

func (f *fakeCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func newFakeClient(reply string, err error) (*Client, *fakeCompletions) {
	fake := &fakeCompletions{reply: reply, err: err}
	return &Client{chat: fake, model: openai.ChatModelGPT4oMini}, fake
}

func TestHealthTipUsesWeekAndLanguage(t *testing.T) {
	c, fake := newFakeClient("  Namaste! Week tip.  ", nil)
	tip, err := c.HealthTip(context.Background(), 12, models.LanguageHindi)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tip != "Namaste! Week tip." {
		t.Errorf("expected trimmed reply, got %q", tip)
	}
	user := fake.lastParams.Messages[1].OfUser.Content.OfString.Value
	if !strings.Contains(user, "week 12") {
		t.Errorf("expected week in prompt, got %q", user)
	}
	if !strings.Contains(user, "Hindi") {
		t.Errorf("expected language in prompt, got %q", user)
	}
}

func TestAnswerQuestionIncludesQuestion(t *testing.T) {
	c, fake := newFakeClient("Drink water.", nil)
	if _, err := c.AnswerQuestion(context.Background(), "is spotting normal", 9, models.LanguageEnglish); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user := fake.lastParams.Messages[1].OfUser.Content.OfString.Value
	if !strings.Contains(user, "is spotting normal") {
		t.Errorf("expected question in prompt, got %q", user)
	}
	if !strings.Contains(user, "English") {
		t.Errorf("expected language in prompt, got %q", user)
	}
}

func TestReminderMessageIncludesName(t *testing.T) {
	c, fake := newFakeClient("Namaste Sunita!", nil)
	if _, err := c.ReminderMessage(context.Background(), "Sunita", 20, models.LanguageHindi); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	user := fake.lastParams.Messages[1].OfUser.Content.OfString.Value
	if !strings.Contains(user, "Sunita") {
		t.Errorf("expected name in prompt, got %q", user)
	}
}

func TestCompleteErrors(t *testing.T) {
	c, _ := newFakeClient("", errors.New("api down"))
	if _, err := c.HealthTip(context.Background(), 5, models.LanguageHindi); err == nil {
		t.Error("expected error when API fails")
	}

	// A response with no choices is also an error.
	noChoices := &Client{chat: &noChoiceCompletions{}, model: openai.ChatModelGPT4oMini}
	if _, err := noChoices.HealthTip(context.Background(), 5, models.LanguageHindi); err == nil {
		t.Error("expected error when no choices returned")
	}
}

type noChoiceCompletions struct{}

func (n *noChoiceCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	return &openai.ChatCompletion{}, nil
}

func TestFallbacksCoverBothLanguages(t *testing.T) {
	c := &Client{}
	for _, lang := range []models.Language{models.LanguageHindi, models.LanguageEnglish} {
		if c.FallbackTip(lang) == "" || c.FallbackAnswer(lang) == "" || c.FallbackReminder(lang) == "" {
			t.Errorf("empty fallback for language %s", lang)
		}
	}
	if c.FallbackTip(models.LanguageHindi) == c.FallbackTip(models.LanguageEnglish) {
		t.Error("expected language-specific fallback tips")
	}
}
