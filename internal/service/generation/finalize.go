package generation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/slide"
)

const documentHead = `<meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"><script src="https://cdn.tailwindcss.com"></script>`

var anchorTag = regexp.MustCompile(`(?i)<a\s+[^>]*`)

// FinalizeInput decodes the input of a completed render_slide call into a
// finalized slide. Malformed input yields a *domain.ValidationError (or an
// error wrapping domain.ErrValidation).
func FinalizeInput(input json.RawMessage) (*slide.Slide, error) {
	raw := gjson.GetBytes(input, "slide")
	if !raw.IsObject() {
		return nil, &domain.ValidationError{Field: "slide", Message: "must be an object"}
	}

	doc, err := sjson.SetBytes([]byte(raw.Raw), "background", slide.DefaultBackground)
	if err != nil {
		return nil, &domain.ValidationError{Field: "slide", Message: err.Error()}
	}
	if doc, err = sjson.SetBytes(doc, "dark", false); err != nil {
		return nil, &domain.ValidationError{Field: "slide", Message: err.Error()}
	}

	var s slide.Slide
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, &domain.ValidationError{Field: "slide", Message: err.Error()}
	}
	if err := validateSlide(&s); err != nil {
		return nil, err
	}

	s.Blocks = finalizeBlocks(s.Blocks)
	return &s, nil
}

func validateSlide(s *slide.Slide) error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.ID, validation.Required),
		validation.Field(&s.Blocks, validation.NotNil),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func finalizeBlocks(blocks []slide.Block) []slide.Block {
	out := make([]slide.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Props == nil {
			continue
		}
		b = processBlock(b)
		if IsBlockComplete(b) {
			out = append(out, b)
		}
	}
	return out
}

// FinalizePartial prepares an in-flight slide for display: blocks need an id
// and a type, actions need a label and a prompt. Incomplete blocks are kept so
// the client can show placeholders; unknown types pass through as they do in
// FinalizeInput.
func FinalizePartial(s *slide.Slide) *slide.Slide {
	out := *s
	out.Background = slide.DefaultBackground
	out.Dark = false

	out.Blocks = make([]slide.Block, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		if b.ID == "" || b.Type == "" {
			continue
		}
		if b.Props != nil {
			b = processBlock(b)
		}
		out.Blocks = append(out.Blocks, b)
	}

	out.Actions = nil
	for _, a := range s.Actions {
		if a.Label != "" && a.Prompt != "" {
			out.Actions = append(out.Actions, a)
		}
	}
	return &out
}

// processBlock normalizes legacy html blocks to jsx and opens external links
// in a new tab. Children are processed recursively.
func processBlock(b slide.Block) slide.Block {
	if content, ok := b.Props["content"].(string); ok {
		switch b.Type {
		case slide.BlockHTML:
			b.Type = slide.BlockJSX
			b.Props = withProp(b.Props, "content", wrapDocument(content))
		case slide.BlockJSX:
			b.Props = withProp(b.Props, "content", externalLinksNewTab(content))
		}
	}
	if b.Children != nil {
		children := make([]slide.Block, len(b.Children))
		for i, c := range b.Children {
			if c.Props != nil {
				c = processBlock(c)
			}
			children[i] = c
		}
		b.Children = children
	}
	return b
}

func withProp(p slide.Props, key string, value any) slide.Props {
	out := make(slide.Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	out[key] = value
	return out
}

func wrapDocument(html string) string {
	r := html
	if !strings.Contains(r, "<!DOCTYPE") && !strings.Contains(r, "<!doctype") {
		if strings.Contains(r, "<html") {
			r = "<!DOCTYPE html>\n" + r
		} else {
			r = "<!DOCTYPE html><html><head>" + documentHead + "</head><body>" + r + "</body></html>"
		}
	}
	if !strings.Contains(r, "cdn.tailwindcss.com") && strings.Contains(r, "<head") {
		r = strings.Replace(r, "</head>", `<script src="https://cdn.tailwindcss.com"></script></head>`, 1)
	}
	if strings.Contains(r, "<head") && !strings.Contains(r, "viewport") {
		r = strings.Replace(r, "<head>", `<head><meta name="viewport" content="width=device-width,initial-scale=1">`, 1)
	}
	return externalLinksNewTab(r)
}

// externalLinksNewTab adds target="_blank" rel="noopener" to anchors with an
// absolute http(s) href and no target.
func externalLinksNewTab(html string) string {
	return anchorTag.ReplaceAllStringFunc(html, func(tag string) string {
		lower := strings.ToLower(tag)
		if strings.Contains(lower, "target=") {
			return tag
		}
		if !strings.Contains(lower, `href="http://`) && !strings.Contains(lower, `href="https://`) {
			return tag
		}
		attrs := strings.TrimLeft(tag[2:], " \t\r\n")
		return `<a target="_blank" rel="noopener" ` + attrs
	})
}

// IsBlockComplete reports whether a block carries the data its type needs to
// render. Types without a rule are always complete.
func IsBlockComplete(b slide.Block) bool {
	p := b.Props
	if p == nil {
		return false
	}
	switch b.Type {
	case slide.BlockHTML, slide.BlockJSX:
		s, ok := p["content"].(string)
		return ok && s != ""
	case slide.BlockHeading, slide.BlockQuote:
		return isString(p, "text")
	case slide.BlockText, slide.BlockCallout:
		return isString(p, "content")
	case slide.BlockList, slide.BlockStats, slide.BlockTimeline, slide.BlockProgress:
		return nonEmptyArray(p, "items")
	case slide.BlockQuiz:
		return isString(p, "question") && isArray(p, "options")
	case slide.BlockChart:
		return nonEmptyArray(p, "data")
	case slide.BlockTable:
		return isArray(p, "headers") && isArray(p, "rows")
	case slide.BlockCounter:
		return isString(p, "label")
	case slide.BlockCode:
		return isString(p, "code")
	case slide.BlockCard:
		return isString(p, "title")
	case slide.BlockImage:
		return isString(p, "src")
	default:
		return true
	}
}

func isString(p slide.Props, key string) bool {
	_, ok := p[key].(string)
	return ok
}

func isArray(p slide.Props, key string) bool {
	_, ok := p[key].([]any)
	return ok
}

func nonEmptyArray(p slide.Props, key string) bool {
	a, ok := p[key].([]any)
	return ok && len(a) > 0
}
