package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"rostersync/internal/llm"
	"rostersync/internal/roster/models"
	"rostersync/internal/upstream"
)

const (
	normalizerProvider = "shift-normalizer"
	emitShifts         = "emit_shifts"
)

const normalizeSystemPrompt = `Convert noisy roster cells into CanonicalShift[].
Resolve day labels like "Mon 27/10" to ISO date (use weekHint if present).
Normalise times ("9", "9am", "0900") to "09:00".
If a cell contains "OFF" or "AL", skip it.`

var emitShiftsFunction = llm.Function{
	Name:        emitShifts,
	Description: "Return canonical list of shifts",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"employee_name", "date", "start_time", "end_time"},
					"properties": map[string]any{
						"employee_name": map[string]any{"type": "string"},
						"role":          map[string]any{"type": "string"},
						"date":          map[string]any{"type": "string", "description": "YYYY-MM-DD"},
						"start_time":    map[string]any{"type": "string", "description": "HH:mm"},
						"end_time":      map[string]any{"type": "string", "description": "HH:mm"},
						"break_min":     map[string]any{"type": "number"},
						"notes":         map[string]any{"type": "string"},
					},
				},
			},
		},
		"required": []string{"items"},
	},
}

// ShiftNormalizer converts a RawTable into canonical shifts.
type ShiftNormalizer struct {
	client Completer
	model  string
	logger *slog.Logger
}

func NewShiftNormalizer(client Completer, model string, logger *slog.Logger) *ShiftNormalizer {
	if model == "" {
		model = "gpt-4o"
	}
	return &ShiftNormalizer{client: client, model: model, logger: logger}
}

// Normalize asks the model for an emit_shifts call and validates every item.
// weekHint anchors relative day labels when set.
func (n *ShiftNormalizer) Normalize(ctx context.Context, table models.RawTable, weekHint *models.Date) ([]models.CanonicalShift, error) {
	rawJSON, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal raw table: %w", err)
	}
	hint := "Current week"
	if weekHint != nil {
		hint = weekHint.String()
	}

	resp, err := n.client.Complete(ctx, llm.Request{
		Model: n.model,
		Messages: []llm.Message{
			{Role: "system", Content: normalizeSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Raw roster data:\n%s\n\nWeek hint: %s", rawJSON, hint)},
		},
		Functions:     []llm.Function{emitShiftsFunction},
		ForceFunction: emitShifts,
	})
	if err != nil {
		return nil, fmt.Errorf("normalize shifts: %w", err)
	}

	shifts, skipped, err := ParseEmitShifts(resp.Arguments)
	if err != nil {
		return nil, err
	}
	if n.logger != nil && skipped > 0 {
		n.logger.InfoContext(ctx, "skipped leave entries from normalizer", "skipped", skipped)
	}
	return shifts, nil
}

type emitShiftsArgs struct {
	Items *[]emitShiftItem `json:"items"`
}

type emitShiftItem struct {
	EmployeeName *string     `json:"employee_name"`
	Role         string      `json:"role"`
	Date         *string     `json:"date"`
	StartTime    *string     `json:"start_time"`
	EndTime      *string     `json:"end_time"`
	BreakMin     json.Number `json:"break_min"`
	Notes        string      `json:"notes"`
}

// ParseEmitShifts validates emit_shifts arguments. Items whose times are an
// OFF or AL marker are dropped and counted in skipped.
func ParseEmitShifts(arguments string) (shifts []models.CanonicalShift, skipped int, err error) {
	arguments = strings.TrimSpace(arguments)
	if arguments == "" {
		return nil, 0, upstream.Malformed(normalizerProvider, "emit_shifts call has no arguments")
	}

	var args emitShiftsArgs
	dec := json.NewDecoder(bytes.NewReader([]byte(arguments)))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, 0, upstream.Malformed(normalizerProvider, "emit_shifts arguments do not match the schema")
	}
	if args.Items == nil {
		return nil, 0, upstream.Malformed(normalizerProvider, "emit_shifts arguments have no items")
	}

	shifts = make([]models.CanonicalShift, 0, len(*args.Items))
	for i, item := range *args.Items {
		if item.EmployeeName == nil || item.Date == nil || item.StartTime == nil || item.EndTime == nil {
			return nil, 0, upstream.Malformed(normalizerProvider,
				fmt.Sprintf("item %d is missing employee_name, date, start_time or end_time", i))
		}
		if isLeaveMarker(*item.StartTime) || isLeaveMarker(*item.EndTime) {
			skipped++
			continue
		}
		breakMinutes, err := parseBreak(item.BreakMin)
		if err != nil {
			return nil, 0, upstream.Malformed(normalizerProvider, fmt.Sprintf("item %d: %v", i, err))
		}
		shift, err := models.NewCanonicalShift(*item.EmployeeName, item.Role, *item.Date,
			*item.StartTime, *item.EndTime, breakMinutes, item.Notes)
		if err != nil {
			return nil, 0, upstream.Malformed(normalizerProvider, fmt.Sprintf("item %d: %v", i, err))
		}
		shifts = append(shifts, shift)
	}
	return shifts, skipped, nil
}

func parseBreak(n json.Number) (*int, error) {
	if n == "" {
		return nil, nil
	}
	f, err := n.Float64()
	if err != nil || f < 0 || f != math.Trunc(f) {
		return nil, fmt.Errorf("break_min %q is not a whole number of minutes", n.String())
	}
	v := int(f)
	return &v, nil
}

func isLeaveMarker(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF", "AL":
		return true
	}
	return false
}
