package generation

import (
	"fmt"

	"github.com/cbroglie/mustache"
)

// DefaultPromptTemplate matches the layout of the training dataset.
// Triple braces keep the question unescaped.
const DefaultPromptTemplate = "# Question: {{{prompt}}}\n# Answer:"

// PromptTemplate renders the prefix fed to the engine for a question.
type PromptTemplate struct {
	tmpl *mustache.Template
}

// NewPromptTemplate parses src. An empty src selects DefaultPromptTemplate.
func NewPromptTemplate(src string) (*PromptTemplate, error) {
	if src == "" {
		src = DefaultPromptTemplate
	}
	tmpl, err := mustache.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return &PromptTemplate{tmpl: tmpl}, nil
}

// Format renders the prefix for prompt.
func (p *PromptTemplate) Format(prompt string) (string, error) {
	out, err := p.tmpl.Render(map[string]string{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return out, nil
}
