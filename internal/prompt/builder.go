// Package prompt builds the model requests for text and image messages.
//
// Templates come from configuration and are rendered once at construction
// with the target language and length limit. User text is concatenated into
// the request afterwards and is never passed through the template engine.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/edgard/linerelay/internal/config"
)

type templateData struct {
	Language string
	MaxChars int
}

// Builder produces story and vision requests.
type Builder struct {
	storyInstruction  string
	storyPrefix       string
	storySuffix       string
	visionInstruction string
	visionPrompt      string
}

// NewBuilder renders the configured templates. It fails if any template does
// not parse or execute.
func NewBuilder(cfg config.PromptsConfig) (*Builder, error) {
	data := templateData{
		Language: cfg.LanguageName(),
		MaxChars: cfg.MaxChars,
	}
	if data.Language == "" {
		return nil, fmt.Errorf("unknown prompt language %q", cfg.Language)
	}

	b := &Builder{}
	for _, t := range []struct {
		name string
		src  string
		dst  *string
	}{
		{"story_instruction", cfg.StoryInstruction, &b.storyInstruction},
		{"story_prefix", cfg.StoryPrefix, &b.storyPrefix},
		{"story_suffix", cfg.StorySuffix, &b.storySuffix},
		{"vision_instruction", cfg.VisionInstruction, &b.visionInstruction},
		{"vision_prompt", cfg.VisionPrompt, &b.visionPrompt},
	} {
		out, err := render(t.name, t.src, data)
		if err != nil {
			return nil, err
		}
		*t.dst = out
	}

	return b, nil
}

func render(name, src string, data templateData) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", name, err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", name, err)
	}
	return sb.String(), nil
}

// Story builds the request for a text message. The single text segment is the
// rendered prefix, the verbatim user text, then the rendered suffix.
func (b *Builder) Story(text string) Request {
	return Request{
		Template:    TemplateStory,
		Instruction: b.storyInstruction,
		Segments: []Segment{
			{Kind: SegmentText, Text: b.storyPrefix + text + b.storySuffix},
		},
	}
}

// Vision builds the request for an image stored at path.
func (b *Builder) Vision(path string) Request {
	return Request{
		Template:    TemplateVision,
		Instruction: b.visionInstruction,
		Segments: []Segment{
			{Kind: SegmentText, Text: b.visionPrompt},
			{Kind: SegmentImage, ImagePath: path},
		},
	}
}
