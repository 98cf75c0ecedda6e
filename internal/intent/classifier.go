// Package intent classifies voicemail transcripts and inbound texts so the
// owner sees what the caller wants before calling back.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"textback_backend/platform/config"
	"textback_backend/platform/logger"
)

// Known intent labels. The model is constrained to this set; anything it
// cannot place lands in IntentOther.
const (
	IntentBooking   = "booking"
	IntentQuote     = "quote"
	IntentEmergency = "emergency"
	IntentQuestion  = "question"
	IntentSpam      = "spam"
	IntentOther     = "other"
)

// Channels tag where the text came from so the model can weigh phrasing
// accordingly (a voicemail reads differently from a typed text).
const (
	ChannelVoicemail = "voicemail"
	ChannelSMS       = "sms"
)

// Classification is the structured result for one transcript or message.
type Classification struct {
	Intent         string `json:"intent"`
	Summary        string `json:"summary"`
	Priority       string `json:"priority"` // high | normal | low
	SuggestedReply string `json:"suggestedReply"`
}

// Classifier produces a Classification for free-form caller text. Channel is
// one of the Channel* constants.
type Classifier interface {
	Classify(ctx context.Context, businessName, channel, text string) (Classification, error)
}

// GeminiClassifier calls Gemini with a JSON response schema. Nil when the
// feature is disabled; callers treat classification as best-effort.
type GeminiClassifier struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func NewGeminiClassifier(ctx context.Context, cfg config.IntentConfig, log *logger.Logger) (*GeminiClassifier, error) {
	if !cfg.IsIntentEnabled() || cfg.GetGeminiAPIKey() == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.GetGeminiModel()
	if model == "" {
		model = "gemini-2.0-flash"
	}

	return &GeminiClassifier{client: client, model: model, log: log}, nil
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent": {
			Type: genai.TypeString,
			Enum: []string{IntentBooking, IntentQuote, IntentEmergency, IntentQuestion, IntentSpam, IntentOther},
		},
		"summary":        {Type: genai.TypeString},
		"priority":       {Type: genai.TypeString, Enum: []string{"high", "normal", "low"}},
		"suggestedReply": {Type: genai.TypeString},
	},
	Required: []string{"intent", "summary", "priority"},
}

const systemPrompt = `You classify messages left for a local service business.
Summarize in one sentence what the caller needs. Mark emergencies (water leak,
no heat, lockout, safety issue) as high priority. Keep the suggested reply
under 300 characters, friendly, and free of promises about pricing.`

func (c *GeminiClassifier) Classify(ctx context.Context, businessName, channel, text string) (Classification, error) {
	if c == nil {
		return Classification{}, fmt.Errorf("intent classifier not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	prompt := fmt.Sprintf("Business: %s\nChannel: %s\n\nMessage:\n%s", businessName, channel, strings.TrimSpace(text))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("classify intent: %w", err)
	}

	var out Classification
	if err := json.Unmarshal([]byte(resp.Text()), &out); err != nil {
		return Classification{}, fmt.Errorf("parse intent response: %w", err)
	}
	if out.Intent == "" {
		out.Intent = IntentOther
	}

	return out, nil
}
