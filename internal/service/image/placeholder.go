package image

import (
	"fmt"
	"strings"
)

// Label limits for placeholder captions
const (
	PhotoLabelLimit     = 60
	GeneratedLabelLimit = 80
)

// aspectSizes are the placeholder dimensions per aspect ratio
var aspectSizes = map[string][2]int{
	"1:1":  {400, 400},
	"3:4":  {300, 400},
	"4:3":  {400, 300},
	"9:16": {270, 480},
	"16:9": {480, 270},
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// PhotoPlaceholder is the 400x300 labeled card served when no photo is found
func PhotoPlaceholder(query string) *Image {
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300" viewBox="0 0 400 300">
    <rect width="100%%" height="100%%" fill="#e2e8f0"/>
    <text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" font-family="system-ui,sans-serif" font-size="14" fill="#64748b">%s</text>
  </svg>`, label(query, PhotoLabelLimit))
	return svgImage(svg)
}

// GeneratedPlaceholder is the neutral picture-icon card served when image
// generation is unavailable. Unknown aspects fall back to 1:1.
func GeneratedPlaceholder(prompt, aspect string) *Image {
	size, ok := aspectSizes[aspect]
	if !ok {
		size = aspectSizes["1:1"]
	}
	w, h := size[0], size[1]
	cx, cy := w/2, h/2

	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%[1]d" height="%[2]d" viewBox="0 0 %[1]d %[2]d">
    <rect width="100%%" height="100%%" fill="#f3f4f6"/>
    <rect x="%[3]d" y="%[4]d" width="40" height="40" rx="8" fill="#d1d5db"/>
    <path d="M%[5]d %[6]d l6 8 4-4 6 8h-22z" fill="#9ca3af"/>
    <circle cx="%[7]d" cy="%[8]d" r="4" fill="#9ca3af"/>
    <text x="50%%" y="%[9]d" dominant-baseline="middle" text-anchor="middle" font-family="system-ui,sans-serif" font-size="11" fill="#9ca3af">%[10]s</text>
  </svg>`,
		w, h,
		cx-20, cy-24,
		cx-8, cy-8,
		cx+8, cy-10,
		cy+28,
		label(prompt, GeneratedLabelLimit),
	)
	return svgImage(svg)
}

// label truncates s to limit runes and escapes it for XML text
func label(s string, limit int) string {
	r := []rune(s)
	if len(r) > limit {
		r = r[:limit]
	}
	return xmlEscaper.Replace(string(r))
}

func svgImage(svg string) *Image {
	return &Image{
		ContentType: "image/svg+xml",
		Data:        []byte(svg),
		MaxAge:      PlaceholderMaxAge,
		Placeholder: true,
	}
}
