// Package prompt renders the instruction prompts sent to reply generators.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

// SupportReply is the name of the built-in ticket reply template.
const SupportReply = "support_reply"

// NoArticlesNotice replaces the article list when retrieval found nothing.
const NoArticlesNotice = "No specific knowledge base articles found for this issue."

const supportReplyTemplate = `You are a customer support agent helping resolve a support ticket.

Ticket Title: {{.Title}}
Ticket Description: {{.Description}}
Classified Intent: {{.Intent}}

{{if .Documents}}Relevant knowledge base articles:

{{range $i, $d := .Documents}}[Article {{inc $i}}] (Relevance: {{printf "%.2f" $d.SimilarityScore}})
{{$d.Content}}

{{end}}{{else}}` + NoArticlesNotice + `

{{end}}
Instructions:
- Provide a clear, helpful response to the user's issue
- Base your answer on the knowledge base articles provided when relevant
- Be professional, empathetic, and concise
- If the knowledge base doesn't have sufficient information, acknowledge this and suggest next steps
- Do not make up information not present in the knowledge base
- Keep the response under 300 words

Response:`

var funcs = template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"upper": strings.ToUpper,
}

// Template represents a prompt template with variables
type Template struct {
	Name     string
	Content  string
	template *template.Template
}

// NewTemplate parses content. Templates may use the inc and upper helpers.
func NewTemplate(name, content string) (*Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Template{
		Name:     name,
		Content:  content,
		template: tmpl,
	}, nil
}

// Render executes the template against data.
func (t *Template) Render(data any) (string, error) {
	var buf strings.Builder
	if err := t.template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.Name, err)
	}
	return buf.String(), nil
}

// Manager manages prompt templates
// All operations are thread-safe using RWMutex protection
type Manager struct {
	mu        sync.RWMutex // Protects templates map
	templates map[string]*Template
}

// NewManager creates a manager holding the built-in templates.
func NewManager() *Manager {
	m := &Manager{templates: make(map[string]*Template)}
	m.templates[SupportReply] = mustTemplate(SupportReply, supportReplyTemplate)
	return m
}

func mustTemplate(name, content string) *Template {
	t, err := NewTemplate(name, content)
	if err != nil {
		panic(err)
	}
	return t
}

// Register adds or replaces a template. Replacing SupportReply changes the
// prompt every subsequent draft uses.
func (m *Manager) Register(tmpl *Template) error {
	if tmpl == nil || tmpl.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tmpl.Name] = tmpl
	return nil
}

// RegisterString registers a template from string content
func (m *Manager) RegisterString(name, content string) error {
	tmpl, err := NewTemplate(name, content)
	if err != nil {
		return err
	}
	return m.Register(tmpl)
}

// Get retrieves a template by name
func (m *Manager) Get(name string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tmpl, ok := m.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %s not found", name)
	}
	return tmpl, nil
}

// Render renders a template by name with the given data
func (m *Manager) Render(name string, data any) (string, error) {
	tmpl, err := m.Get(name)
	if err != nil {
		return "", err
	}
	return tmpl.Render(data)
}

// List returns all registered template names, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
