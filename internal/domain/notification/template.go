package notification

import (
	"fmt"
	"strings"
	"sync"
)

// Template is a reusable message with {{key}} placeholders.
type Template struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// TemplateEngine holds the registered templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates an engine with the prescription lifecycle
// templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      "prescription-created",
			Title:   "Prescription created",
			Message: "Prescription for {{patient_name}} was created with {{medication_count}} medication(s).",
		},
		{
			ID:      "prescription-updated",
			Title:   "Prescription updated",
			Message: "Prescription for {{patient_name}} was updated.",
		},
		{
			ID:      "prescription-validated",
			Title:   "Prescription validated",
			Message: "Prescription for {{patient_name}} was validated and is ready to dispense.",
		},
		{
			ID:      "prescription-dispensed",
			Title:   "Prescription dispensed",
			Message: "Prescription for {{patient_name}} was dispensed ({{medication_count}} medication(s)).",
		},
		{
			ID:      "prescription-cancelled",
			Title:   "Prescription cancelled",
			Message: "Prescription for {{patient_name}} was cancelled.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using
// the supplied data map. Keys present in the template but absent from data
// are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (title, message string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	title = t.Title
	message = t.Message
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		title = strings.ReplaceAll(title, placeholder, v)
		message = strings.ReplaceAll(message, placeholder, v)
	}
	return title, message, nil
}
