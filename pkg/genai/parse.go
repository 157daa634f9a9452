package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/lessonforge/lessonforge/internal/models"
)

// Shape schemas for the two model outputs. The pipeline trusts the
// content itself; these only reject structurally unusable responses.
const draftSchemaJSON = `{
	"type": "object",
	"required": ["principles"],
	"properties": {
		"title": {"type": "string"},
		"summary": {"type": "string"},
		"principles": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["title"],
				"properties": {
					"title": {"type": "string", "minLength": 1},
					"body": {"type": "string"}
				}
			}
		}
	}
}`

const reportSchemaJSON = `{
	"type": "object",
	"required": ["confidence"],
	"properties": {
		"confidence": {"type": "integer", "minimum": 0, "maximum": 100},
		"findings": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"principle": {"type": "string"},
					"verdict": {"type": "string"},
					"note": {"type": "string"}
				}
			}
		}
	}
}`

var (
	schemaOnce   sync.Once
	draftSchema  *jsonschema.Schema
	reportSchema *jsonschema.Schema
)

func compileSchemas() {
	draftSchema = &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(draftSchemaJSON), draftSchema); err != nil {
		panic(fmt.Sprintf("genai: compile draft schema: %v", err))
	}
	reportSchema = &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(reportSchemaJSON), reportSchema); err != nil {
		panic(fmt.Sprintf("genai: compile report schema: %v", err))
	}
}

// ParseTopicDraft extracts the JSON object from arbitrary model output,
// checks its shape, and unmarshals it.
func ParseTopicDraft(ctx context.Context, s string) (*models.TopicDraft, error) {
	schemaOnce.Do(compileSchemas)
	j, err := checkShape(ctx, s, draftSchema)
	if err != nil {
		return nil, err
	}

	var d models.TopicDraft
	if err := json.Unmarshal([]byte(j), &d); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	d.Raw = s

	return &d, nil
}

// ParseValidationReport extracts and shape-checks the validation output.
func ParseValidationReport(ctx context.Context, s string) (*models.ValidationReport, error) {
	schemaOnce.Do(compileSchemas)
	j, err := checkShape(ctx, s, reportSchema)
	if err != nil {
		return nil, err
	}

	var r models.ValidationReport
	if err := json.Unmarshal([]byte(j), &r); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	r.Raw = s

	return &r, nil
}

func checkShape(ctx context.Context, s string, schema *jsonschema.Schema) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", errors.New("empty response")
	}

	j := extractJSON(s)
	if j == "" {
		return "", errors.New("no JSON object found in response")
	}

	verrs, err := schema.ValidateBytes(ctx, []byte(j))
	if err != nil {
		return "", fmt.Errorf("schema validate: %w", err)
	}
	if len(verrs) > 0 {
		var sb strings.Builder
		for _, v := range verrs {
			sb.WriteString(v.Message)
			sb.WriteString("; ")
		}
		return "", fmt.Errorf("response does not match schema: %s", sb.String())
	}

	return j, nil
}

// extractJSON returns the substring from the first '{' to the last '}' in
// the input. This is a pragmatic approach to handle model outputs that
// wrap JSON in prose or markdown fences.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}
