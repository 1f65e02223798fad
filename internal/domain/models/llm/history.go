package llm

import "fmt"

// History is an ordered conversation. Values are treated as immutable
// snapshots: callers that need to append work on a Clone.
type History []Message

// Clone returns a copy whose slices can be appended to without affecting h
func (h History) Clone() History {
	out := make(History, len(h))
	for i, m := range h {
		if m.Blocks != nil {
			m.Blocks = append([]ContentBlock(nil), m.Blocks...)
		}
		out[i] = m
	}
	return out
}

// DanglingToolUses returns tool calls of the trailing assistant message that
// have no answering tool_result message after them.
func (h History) DanglingToolUses() []ContentBlock {
	if len(h) == 0 {
		return nil
	}
	last := h[len(h)-1]
	if last.Role != RoleAssistant {
		return nil
	}
	return last.ToolUses()
}

// CheckToolPairing verifies that every tool_use block is answered, in the
// immediately following user message, by tool_result blocks referencing the
// same ids in the same relative order. A trailing assistant message may leave
// its calls unanswered.
func (h History) CheckToolPairing() error {
	for i, m := range h {
		if m.Role != RoleAssistant {
			continue
		}
		uses := m.ToolUses()
		if len(uses) == 0 || i == len(h)-1 {
			continue
		}
		next := h[i+1]
		if next.Role != RoleUser {
			return fmt.Errorf("message %d: tool calls followed by %s message", i, next.Role)
		}
		ids := next.ToolResultIDs()
		if len(ids) != len(uses) {
			return fmt.Errorf("message %d: %d tool calls but %d results", i, len(uses), len(ids))
		}
		for j, u := range uses {
			if ids[j] != u.ID {
				return fmt.Errorf("message %d: result %d answers %q, want %q", i, j, ids[j], u.ID)
			}
		}
	}
	return nil
}
