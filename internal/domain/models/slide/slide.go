package slide

import (
	"bytes"
	"encoding/json"
)

// BlockType tags the kind of a block. The set is closed: rendering and
// completeness rules exist only for the constants below, anything else is
// passed through as an opaque block.
type BlockType string

const (
	BlockHeading  BlockType = "heading"
	BlockText     BlockType = "text"
	BlockImage    BlockType = "image"
	BlockList     BlockType = "list"
	BlockQuote    BlockType = "quote"
	BlockCallout  BlockType = "callout"
	BlockCard     BlockType = "card"
	BlockGrid     BlockType = "grid"
	BlockColumns  BlockType = "columns"
	BlockDivider  BlockType = "divider"
	BlockTable    BlockType = "table"
	BlockStats    BlockType = "stats"
	BlockTimeline BlockType = "timeline"
	BlockChart    BlockType = "chart"
	BlockProgress BlockType = "progress"
	BlockButton   BlockType = "button"
	BlockQuiz     BlockType = "quiz"
	BlockCounter  BlockType = "counter"
	BlockCode     BlockType = "code"
	BlockMap      BlockType = "map"
	BlockHTML     BlockType = "html"
	BlockJSX      BlockType = "jsx"
)

// Action variants
const (
	VariantPrimary   = "primary"
	VariantSecondary = "secondary"
	VariantOutline   = "outline"
)

// DefaultBackground is the background every finalized slide is rendered on
const DefaultBackground = "#ffffff"

// Slide is one generated screen of the presentation
type Slide struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Subtitle   string   `json:"subtitle,omitempty"`
	Background string   `json:"background,omitempty"`
	Dark       bool     `json:"dark"`
	Blocks     []Block  `json:"blocks"`
	Actions    []Action `json:"actions,omitempty"`
}

// Props holds type-specific block properties
type Props map[string]any

// Block is a renderable element of a slide. Blocks may nest via Children
// (grid and columns layouts).
type Block struct {
	ID        string     `json:"id"`
	Type      BlockType  `json:"type"`
	Props     Props      `json:"props,omitempty"`
	Animation *Animation `json:"animation,omitempty"`
	Children  []Block    `json:"children,omitempty"`
}

// Animation describes a block's entrance
type Animation struct {
	Entrance string   `json:"entrance"`
	Delay    float64  `json:"delay"`
	Duration float64  `json:"duration"`
	Stagger  *float64 `json:"stagger,omitempty"`
}

// Action is a navigation button; Prompt is sent to the model when clicked
type Action struct {
	Label   string `json:"label"`
	Prompt  string `json:"prompt"`
	Variant string `json:"variant,omitempty"`
}

// UnmarshalJSON tolerates model output where props is not an object or an
// animation is malformed; those fields are dropped instead of failing the
// whole slide.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string            `json:"id"`
		Type      BlockType         `json:"type"`
		Props     json.RawMessage   `json:"props"`
		Animation json.RawMessage   `json:"animation"`
		Children  []json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = Block{ID: raw.ID, Type: raw.Type}

	for _, c := range raw.Children {
		var child Block
		if err := json.Unmarshal(c, &child); err == nil {
			b.Children = append(b.Children, child)
		}
	}

	if props := bytes.TrimSpace(raw.Props); len(props) > 0 && props[0] == '{' {
		var p Props
		if err := json.Unmarshal(props, &p); err == nil {
			b.Props = p
		}
	}
	if anim := bytes.TrimSpace(raw.Animation); len(anim) > 0 && anim[0] == '{' {
		var a Animation
		if err := json.Unmarshal(anim, &a); err == nil {
			b.Animation = &a
		}
	}
	return nil
}

// BlockIDs returns the ids of the top-level blocks in order
func (s *Slide) BlockIDs() []string {
	ids := make([]string, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		ids = append(ids, b.ID)
	}
	return ids
}

// ActionPrompts returns the prompts of all actions, skipping empty ones
func (s *Slide) ActionPrompts() []string {
	prompts := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		if a.Prompt != "" {
			prompts = append(prompts, a.Prompt)
		}
	}
	return prompts
}
