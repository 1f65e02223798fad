package generation

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"slidegraph/internal/domain/models/slide"
)

// ParsePartialSlide interprets the accumulated input of an in-flight
// render_slide call. It returns false while no slide object is visible yet or
// the prefix cannot be repaired into valid JSON.
func ParsePartialSlide(partialInput string) (*slide.Slide, bool) {
	repaired, ok := repairJSON(partialInput)
	if !ok || !gjson.Valid(repaired) {
		return nil, false
	}
	res := gjson.Get(repaired, "slide")
	if !res.IsObject() {
		return nil, false
	}
	var s slide.Slide
	if err := json.Unmarshal([]byte(res.Raw), &s); err != nil {
		return nil, false
	}
	return FinalizePartial(&s), true
}

type jsonFrame struct {
	object    bool
	expectKey bool
}

// repairJSON closes a truncated JSON object so that it parses: an open string
// is terminated, a dangling comma is dropped, a partial literal is completed
// or dropped, a key or colon without a value gets null, and open containers
// are closed in order.
func repairJSON(src string) (string, bool) {
	src = strings.TrimSpace(src)
	if src == "" || src[0] != '{' {
		return "", false
	}

	var (
		stack    []jsonFrame
		inString bool
		escaped  bool
		isKey    bool
	)
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			isKey = len(stack) > 0 && stack[len(stack)-1].object && stack[len(stack)-1].expectKey
		case '{':
			stack = append(stack, jsonFrame{object: true, expectKey: true})
		case '[':
			stack = append(stack, jsonFrame{})
		case '}', ']':
			if len(stack) == 0 {
				return "", false
			}
			stack = stack[:len(stack)-1]
		case ':':
			if len(stack) > 0 && stack[len(stack)-1].object {
				stack[len(stack)-1].expectKey = false
			}
		case ',':
			if len(stack) > 0 && stack[len(stack)-1].object {
				stack[len(stack)-1].expectKey = true
			}
		}
	}

	if len(stack) == 0 && !inString {
		return src, true
	}

	var sb strings.Builder
	if inString {
		s := src
		if escaped {
			s = s[:len(s)-1]
		}
		sb.WriteString(trimPartialEscape(s))
		sb.WriteByte('"')
		if isKey {
			sb.WriteString(":null")
		}
	} else {
		sb.WriteString(fixTail(src, isKey))
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].object {
			sb.WriteByte('}')
		} else {
			sb.WriteByte(']')
		}
	}
	return sb.String(), true
}

// fixTail makes the end of a truncated document (outside any string) a valid
// place to close containers.
func fixTail(s string, lastStringIsKey bool) string {
	for {
		s = strings.TrimRight(s, " \t\r\n")
		if s == "" {
			return s
		}
		switch c := s[len(s)-1]; {
		case c == ',':
			s = s[:len(s)-1]
		case c == ':':
			return s + "null"
		case c == '"':
			if lastStringIsKey {
				return s + ":null"
			}
			return s
		case c == '{' || c == '[' || c == '}' || c == ']':
			return s
		default:
			j := len(s)
			for j > 0 && isScalarByte(s[j-1]) {
				j--
			}
			token := s[j:]
			if token == "" {
				return s
			}
			if completed, ok := completeScalar(token); ok {
				return s[:j] + completed
			}
			s = s[:j]
		}
	}
}

func isScalarByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '+' || c == '.'
}

// completeScalar finishes a truncated literal or number token
func completeScalar(token string) (string, bool) {
	for _, lit := range []string{"true", "false", "null"} {
		if strings.HasPrefix(lit, token) {
			return lit, true
		}
	}
	num := strings.TrimRight(token, "-+.eE")
	if num == "" || num[0] != '-' && (num[0] < '0' || num[0] > '9') {
		return "", false
	}
	return num, true
}

// trimPartialEscape drops an incomplete \uXXXX escape at the end of an open string
func trimPartialEscape(s string) string {
	idx := strings.LastIndex(s, `\u`)
	if idx < 0 || len(s)-idx >= 6 {
		return s
	}
	backslashes := 0
	for k := idx; k >= 0 && s[k] == '\\'; k-- {
		backslashes++
	}
	if backslashes%2 == 1 {
		return s[:idx]
	}
	return s
}
