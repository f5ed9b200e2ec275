package notification

import (
	"bytes"
	"fmt"
	"text/template"
)

// Renderer compiles message templates with strict missing-key
// semantics: a template referencing a placeholder this core does not
// provide fails loudly instead of sending a half-rendered message.
type Renderer struct{}

func (Renderer) Render(name, tmpl string, data TemplateData) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("render %s: template body required", name)
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("render %s: parse: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: execute: %w", name, err)
	}
	return buf.String(), nil
}
