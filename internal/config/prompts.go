package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"slidegraph/internal/domain/models/llm"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompts holds the prompt text and tool declarations sent to the model
type Prompts struct {
	System             string               `yaml:"system"`
	ContinuePrompt     string               `yaml:"continue_prompt"`
	RenderAck          string               `yaml:"render_ack"`
	ChatSystem         string               `yaml:"chat_system"`
	ChatDefaultMessage string               `yaml:"chat_default_message"`
	ChatToSlide        string               `yaml:"chat_to_slide"`
	Tools              []llm.ToolDefinition `yaml:"tools"`

	system             *template.Template
	chatSystem         *template.Template
	chatDefaultMessage *template.Template
	chatToSlide        *template.Template
}

// LoadPrompts parses the embedded defaults and, if path is set, overlays the
// keys present in that file.
func LoadPrompts(path string) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read prompt file: %w", err)
		}
		var override Prompts
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("parse prompt file %s: %w", path, err)
		}
		p.merge(&override)
	}

	if err := p.compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Prompts) merge(o *Prompts) {
	setIf := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	setIf(&p.System, o.System)
	setIf(&p.ContinuePrompt, o.ContinuePrompt)
	setIf(&p.RenderAck, o.RenderAck)
	setIf(&p.ChatSystem, o.ChatSystem)
	setIf(&p.ChatDefaultMessage, o.ChatDefaultMessage)
	setIf(&p.ChatToSlide, o.ChatToSlide)
	if len(o.Tools) > 0 {
		p.Tools = o.Tools
	}
}

func (p *Prompts) compile() error {
	var err error
	if p.system, err = template.New("system").Parse(p.System); err != nil {
		return fmt.Errorf("system prompt: %w", err)
	}
	if p.chatSystem, err = template.New("chat_system").Parse(p.ChatSystem); err != nil {
		return fmt.Errorf("chat system prompt: %w", err)
	}
	if p.chatDefaultMessage, err = template.New("chat_default_message").Parse(p.ChatDefaultMessage); err != nil {
		return fmt.Errorf("chat default message: %w", err)
	}
	if p.chatToSlide, err = template.New("chat_to_slide").Parse(p.ChatToSlide); err != nil {
		return fmt.Errorf("chat to slide prompt: %w", err)
	}
	return nil
}

// SystemPrompt renders the generation system prompt for the given time and
// user location (empty means unknown).
func (p *Prompts) SystemPrompt(now time.Time, location string) string {
	if location == "" {
		location = "Unknown"
	}
	return render(p.system, map[string]string{
		"Date":     now.Format("Monday, January 2, 2006 at 03:04 PM MST"),
		"Location": location,
	})
}

// ChatSystemPrompt renders the system prompt for a chat thread
func (p *Prompts) ChatSystemPrompt(title, selectedText string) string {
	if title == "" {
		title = "Untitled"
	}
	return render(p.chatSystem, map[string]string{"Title": title, "SelectedText": selectedText})
}

// DefaultChatMessage is the first user message of a thread opened without one
func (p *Prompts) DefaultChatMessage(selectedText string) string {
	return render(p.chatDefaultMessage, map[string]string{"SelectedText": selectedText})
}

// ChatToSlidePrompt builds the generation prompt that turns a chat thread into a slide
func (p *Prompts) ChatToSlidePrompt(title, selectedText, transcript string) string {
	if title == "" {
		title = "a topic"
	}
	return render(p.chatToSlide, map[string]string{
		"Title":        title,
		"SelectedText": selectedText,
		"Transcript":   transcript,
	})
}

// Tool returns the declaration of the named tool
func (p *Prompts) Tool(name string) (llm.ToolDefinition, bool) {
	for _, t := range p.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return llm.ToolDefinition{}, false
}

func render(t *template.Template, data map[string]string) string {
	var sb strings.Builder
	_ = t.Execute(&sb, data)
	return strings.TrimSpace(sb.String())
}
