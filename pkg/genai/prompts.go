package genai

import (
	"bytes"
	"text/template"
)

const generatePrompt = `You are a curriculum author. Produce learning content for the subject "{{.Title}}".
Respond with a single JSON object and nothing else, shaped as:
{"title": "...", "summary": "...", "principles": [{"title": "...", "body": "..."}]}
Write between 3 and 7 principles. Each principle body explains one core idea in 2-4 sentences.`

const validatePrompt = `You are a fact checker. Review the learning content below for the subject "{{.Title}}" and rate its factual accuracy.
Respond with a single JSON object and nothing else, shaped as:
{"confidence": 0-100, "findings": [{"principle": "...", "verdict": "accurate|questionable|wrong", "note": "..."}]}

Content:
{{range .Draft.Principles}}- {{.Title}}: {{.Body}}
{{end}}`

// RenderTemplate renders a prompt template with the provided data.
func RenderTemplate(tmpl string, data any) (string, error) {
	tpl, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
