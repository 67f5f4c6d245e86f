package issues

import (
	"bytes"
	"fmt"
	"text/template"
)

const (
	// DefaultNotifyTemplate is the chat message posted for a new external issue.
	DefaultNotifyTemplate = "I noticed a new external <{{.URL}}|issue> #{{.Number}}. Take a look?"

	// DefaultCommentTemplate is the acknowledgment posted on a new external issue.
	DefaultCommentTemplate = "Hi, this is an automated message. " +
		"While one of our developers cooks up a reply, please search for anything related in our community channels or docs. " +
		"Also, if you haven't posted a reproduction, please do so (we prioritize those tickets)."
)

// MessageData is the data made available to the notify and comment templates.
type MessageData struct {
	Number int
	Title  string
	Author string
	URL    string
}

// MessageTemplate renders a message for an issue.
type MessageTemplate struct {
	tmpl *template.Template
}

// ParseMessageTemplate parses a text/template. Parsing happens once at startup;
// a malformed template is a configuration error.
func ParseMessageTemplate(name, text string) (*MessageTemplate, error) {
	if text == "" {
		return nil, fmt.Errorf("template %s cannot be empty", name)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return &MessageTemplate{tmpl: tmpl}, nil
}

// Render executes the template for the given data.
func (m *MessageTemplate) Render(data MessageData) (string, error) {
	var buf bytes.Buffer
	if err := m.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", m.tmpl.Name(), err)
	}
	return buf.String(), nil
}
