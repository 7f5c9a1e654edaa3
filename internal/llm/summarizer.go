package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/SAP-F-2025/proctoring-service/internal/models"
)

const defaultModel = "gpt-4o-mini"

// Summarizer writes a short narrative for a proctoring report
type Summarizer interface {
	Summarize(ctx context.Context, report *models.SessionReport) (string, error)
}

type Config struct {
	APIKey  string
	BaseURL string // optional, for OpenAI-compatible providers
	Model   string
}

// ReportSummarizer uses the chat completions API
type ReportSummarizer struct {
	client *openai.Client
	model  string
}

func NewReportSummarizer(cfg Config, opts ...option.RequestOption) *ReportSummarizer {
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	client := openai.NewClient(reqOpts...)

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &ReportSummarizer{client: &client, model: model}
}

const systemPrompt = `You review automated proctoring reports for job interviews. Write a neutral summary of at most four sentences for a recruiter. State the overall risk level, the main kinds of incidents and when they happened. Do not accuse the candidate; flag items for human review instead.`

func (s *ReportSummarizer) Summarize(ctx context.Context, report *models.SessionReport) (string, error) {
	facts, err := reportFacts(report)
	if err != nil {
		return "", err
	}

	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(facts),
		},
		Model:       s.model,
		Temperature: openai.Float(0.2),
		MaxTokens:   openai.Int(300),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat api error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no response from openai")
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// reportFacts is the compact JSON view of a report sent to the model.
func reportFacts(report *models.SessionReport) (string, error) {
	type warning struct {
		OffsetSeconds float64 `json:"offset_seconds"`
		Type          string  `json:"type"`
		Severity      string  `json:"severity"`
		Message       string  `json:"message"`
	}

	warnings := make([]warning, 0, len(report.Warnings))
	for _, w := range report.Warnings {
		warnings = append(warnings, warning{
			OffsetSeconds: w.Timestamp.Sub(report.StartedAt).Seconds(),
			Type:          w.Type,
			Severity:      string(w.Severity),
			Message:       w.Message,
		})
	}

	raw, err := json.Marshal(map[string]interface{}{
		"duration_seconds":      report.DurationSeconds,
		"frames_analyzed":       report.TotalFramesAnalyzed,
		"total_warnings":        report.TotalWarnings,
		"risk_score":            report.FinalRiskScore,
		"risk_level":            report.RiskLevel,
		"detection_breakdown":   report.DetectionBreakdown,
		"alert_level_breakdown": report.AlertLevelBreakdown,
		"recent_warnings":       warnings,
	})
	if err != nil {
		return "", fmt.Errorf("marshal report facts: %w", err)
	}
	return string(raw), nil
}
