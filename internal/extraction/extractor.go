// Package extraction turns roster images into canonical shifts through two
// model calls: a vision pass that reads the table verbatim, and a function
// call that normalizes it. Both outputs are validated before use.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"rostersync/internal/llm"
	"rostersync/internal/roster/models"
	"rostersync/internal/upstream"
	dErrors "rostersync/pkg/domain-errors"
)

const extractorProvider = "table-extractor"

const extractSystemPrompt = `You are extracting roster tables from screenshots or PDFs. Output structured cells with row/column labels before any interpretation.

The roster is a weekly schedule.
Capture header dates, per-employee rows, start/end times, breaks, role/notes.
Return JSON with { columns: string[], rows: Array<Record<string,string>> }.
Do not guess missing cells; leave blank strings.`

// Completer is the chat capability the collaborators need.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
}

// TableExtractor reads a roster image into a RawTable.
type TableExtractor struct {
	client Completer
	model  string
	logger *slog.Logger
}

func NewTableExtractor(client Completer, model string, logger *slog.Logger) *TableExtractor {
	if model == "" {
		model = "gpt-4o"
	}
	return &TableExtractor{client: client, model: model, logger: logger}
}

// Extract reads the table from an http(s) or data: URL.
func (e *TableExtractor) Extract(ctx context.Context, fileURL string) (models.RawTable, error) {
	if !isSupportedURL(fileURL) {
		return models.RawTable{}, dErrors.New(dErrors.CodeBadRequest, "fileUrl must be an http(s) or data: URL")
	}

	resp, err := e.client.Complete(ctx, llm.Request{
		Model: e.model,
		Messages: []llm.Message{
			{Role: "system", Content: extractSystemPrompt},
			{Role: "user", Content: []llm.Part{
				llm.TextPart("Extract the roster table from this image. Identify columns (dates, times, roles) and rows (employees)."),
				llm.ImagePart(fileURL),
			}},
		},
		MaxTokens: 4000,
		JSONMode:  true,
	})
	if err != nil {
		return models.RawTable{}, fmt.Errorf("extract table: %w", err)
	}

	table, err := ParseRawTable(resp.Content)
	if err != nil {
		return models.RawTable{}, err
	}
	if e.logger != nil {
		e.logger.InfoContext(ctx, "roster table extracted",
			"columns", len(table.Columns),
			"rows", len(table.Rows),
		)
	}
	return table, nil
}

// ParseRawTable validates model output against the table schema. Null cells
// become blank and numeric cells keep their literal text. Anything else is
// malformed.
func ParseRawTable(content string) (models.RawTable, error) {
	content = llm.CleanMarkdownWrapper(content)
	if content == "" {
		return models.RawTable{}, upstream.Malformed(extractorProvider, "empty table response")
	}

	var raw struct {
		Columns []any            `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return models.RawTable{}, upstream.Malformed(extractorProvider, "table response is not a JSON object with columns and rows")
	}
	if raw.Columns == nil {
		return models.RawTable{}, upstream.Malformed(extractorProvider, "table response has no columns")
	}

	table := models.RawTable{
		Columns: make([]string, 0, len(raw.Columns)),
		Rows:    make([]map[string]string, 0, len(raw.Rows)),
	}
	for i, col := range raw.Columns {
		s, ok := col.(string)
		if !ok {
			return models.RawTable{}, upstream.Malformed(extractorProvider, fmt.Sprintf("column %d is not a string", i))
		}
		table.Columns = append(table.Columns, s)
	}
	for i, row := range raw.Rows {
		if row == nil {
			return models.RawTable{}, upstream.Malformed(extractorProvider, fmt.Sprintf("row %d is not an object", i))
		}
		cells := make(map[string]string, len(row))
		for k, v := range row {
			cell, err := cellText(v)
			if err != nil {
				return models.RawTable{}, upstream.Malformed(extractorProvider, fmt.Sprintf("row %d cell %q: %v", i, k, err))
			}
			cells[k] = cell
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

func cellText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("unexpected %T", v)
	}
}

func isSupportedURL(u string) bool {
	u = strings.ToLower(strings.TrimSpace(u))
	return strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "data:image/")
}
