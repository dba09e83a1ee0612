// Package prompt holds the templates the research roles speak through. A
// Library is seeded with built-in role prompts and lets configuration
// override them by name; Builder assembles the multi-section user messages
// (plan, evidence, task) the roles send alongside their system prompt.
package prompt

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// Template is a named prompt with {{.Var}} slots. Rendering is strict: a
// variable the caller did not supply is an error, never "<no value>" leaking
// into an LLM request.
type Template struct {
	Name     string
	Text     string
	template *template.Template
}

// New parses a prompt template.
func New(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return &Template{
		Name:     name,
		Text:     text,
		template: tmpl,
	}, nil
}

// MustNew parses a built-in template and panics on error. Only for prompt
// text compiled into the binary.
func MustNew(name, text string) *Template {
	tmpl, err := New(name, text)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Render fills the template with the given variables.
func (t *Template) Render(vars map[string]any) (string, error) {
	var buf strings.Builder
	if err := t.template.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", t.Name, err)
	}
	return buf.String(), nil
}

// Library is the set of prompts a pipeline runs with. It starts from the
// built-in defaults and configuration may replace individual entries, so
// registering an existing name overrides rather than errors.
// All operations are thread-safe using RWMutex protection.
type Library struct {
	mu        sync.RWMutex // Protects templates map
	templates map[string]*Template
}

// NewLibrary creates a library seeded with the given templates.
func NewLibrary(seed ...*Template) *Library {
	lib := &Library{
		templates: make(map[string]*Template),
	}
	for _, tmpl := range seed {
		lib.templates[tmpl.Name] = tmpl
	}
	return lib
}

// Override parses text and installs it under name, replacing any default.
func (l *Library) Override(name, text string) error {
	if name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	tmpl, err := New(name, text)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[name] = tmpl
	return nil
}

// Get retrieves a template by name.
func (l *Library) Get(name string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tmpl, ok := l.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %s not found", name)
	}
	return tmpl, nil
}

// Render renders a template by name with the given variables.
func (l *Library) Render(name string, vars map[string]any) (string, error) {
	tmpl, err := l.Get(name)
	if err != nil {
		return "", err
	}
	return tmpl.Render(vars)
}

// Builder assembles a prompt from parts.
type Builder struct {
	parts []string
}

// NewBuilder creates a new prompt builder.
func NewBuilder() *Builder {
	return &Builder{
		parts: make([]string, 0),
	}
}

// Add appends a part.
func (b *Builder) Add(part string) *Builder {
	b.parts = append(b.parts, part)
	return b
}

// Addf appends a formatted part.
func (b *Builder) Addf(format string, args ...any) *Builder {
	b.parts = append(b.parts, fmt.Sprintf(format, args...))
	return b
}

// AddLine appends a part followed by a newline.
func (b *Builder) AddLine(part string) *Builder {
	b.parts = append(b.parts, part+"\n")
	return b
}

// AddSection appends a titled markdown section.
func (b *Builder) AddSection(title, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("## %s\n%s\n", title, content))
	return b
}

// Build returns the assembled prompt.
func (b *Builder) Build() string {
	return strings.Join(b.parts, "")
}
