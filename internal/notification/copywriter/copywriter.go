// Package copywriter writes the title and body of shift change
// notifications with a chat model, falling back to fixed text when the
// model's answer is unusable.
package copywriter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"rostersync/internal/llm"
	"rostersync/internal/notification/models"
)

const systemPrompt = "Generate concise, friendly notifications for staff about shift changes. Respond with a JSON object {\"title\": string, \"body\": string}."

// Completer is the chat capability the generator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// Generator produces notification copy.
type Generator struct {
	client Completer
	model  string
	logger *slog.Logger
}

func New(client Completer, model string, logger *slog.Logger) *Generator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Generator{client: client, model: model, logger: logger}
}

// Generate returns copy for one user's changes. Transport failures are
// returned; empty, unparsable or over-length output is replaced field by
// field with the fallback text.
func (g *Generator) Generate(ctx context.Context, req models.CopyRequest) (models.Copy, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return models.Copy{}, err
	}
	resp, err := g.client.Complete(ctx, llm.Request{
		Model: g.model,
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   150,
		Temperature: llm.Float(0.7),
		JSONMode:    true,
	})
	if err != nil {
		return models.Copy{}, fmt.Errorf("generate notification copy: %w", err)
	}

	out, usedFallback := Parse(resp.Content)
	if usedFallback && g.logger != nil {
		g.logger.WarnContext(ctx, "notification copy replaced with fallback",
			"user_id", req.UserID,
		)
	}
	return out, nil
}

// Parse reads {title, body} and bounds it. The second result reports
// whether any fallback text was used.
func Parse(content string) (models.Copy, bool) {
	fallback := models.Fallback()
	var parsed models.Copy
	if err := json.Unmarshal([]byte(llm.CleanMarkdownWrapper(content)), &parsed); err != nil {
		return fallback, true
	}

	out := models.Copy{
		Title: clean(parsed.Title),
		Body:  clean(parsed.Body),
	}
	used := false
	if out.Title == "" || utf8.RuneCountInString(out.Title) > models.MaxTitleLength {
		out.Title = fallback.Title
		used = true
	}
	if out.Body == "" || utf8.RuneCountInString(out.Body) > models.MaxBodyLength {
		out.Body = fallback.Body
		used = true
	}
	return out, used
}

func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

func buildPrompt(req models.CopyRequest) (string, error) {
	oldJSON, err := json.Marshal(nonNil(req.OldShifts))
	if err != nil {
		return "", fmt.Errorf("marshal old shifts: %w", err)
	}
	newJSON, err := json.Marshal(nonNil(req.NewShifts))
	if err != nil {
		return "", fmt.Errorf("marshal new shifts: %w", err)
	}
	tz := req.Timezone
	if tz == "" {
		tz = "Australia/Sydney"
	}
	return fmt.Sprintf(`Context:
- Employee: %s
- Old shifts: %s
- New shifts: %s
- Timezone: %s

Write: One short push title (max %d chars) + one-line body (max %d chars). If multiple changes, summarise count and next shift time. Avoid jargon.

Example outputs:
- {"title": "Your roster has been updated", "body": "3 shifts changed. Next shift: Tue 9am-5pm"}
- {"title": "New shift added", "body": "Thu 5pm-10pm as Server. Check your roster."}
- {"title": "Shift time changed", "body": "Wed now starts at 8am (was 9am)"}`,
		req.UserName, oldJSON, newJSON, tz, models.MaxTitleLength, models.MaxBodyLength), nil
}

func nonNil(s []models.ShiftSummary) []models.ShiftSummary {
	if s == nil {
		return []models.ShiftSummary{}
	}
	return s
}
