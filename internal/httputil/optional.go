package httputil

import (
	"bytes"
	"encoding/json"
)

// Optional is a PATCH member with JSON merge-patch semantics (RFC 7396):
// absent leaves the stored value alone, null clears it, anything else
// replaces it. A plain pointer cannot tell absent from null.
type Optional[T any] struct {
	Set   bool // member present in the body
	Value *T   // nil when the member was null
}

// UnmarshalJSON is only called for members present in the body
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Patch returns the update to apply: nil when the member was absent,
// cleared when it was null, the sent value otherwise.
func (o Optional[T]) Patch(cleared T) *T {
	switch {
	case !o.Set:
		return nil
	case o.Value == nil:
		return &cleared
	default:
		v := *o.Value
		return &v
	}
}
