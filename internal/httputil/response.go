package httputil

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes data as JSON with the given status. The body is
// marshaled before any header is written so an encoding failure still
// produces a well-formed 500.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	write(w, "application/json", status, payload)
}

// ProblemDetail is an RFC 7807 problem body. Extensions are flattened into
// the top-level object.
type ProblemDetail struct {
	Type       string
	Title      string
	Status     int
	Detail     string
	Extensions map[string]any
}

func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extensions)+4)
	for k, v := range p.Extensions {
		m[k] = v
	}
	m["type"] = p.Type
	m["title"] = p.Title
	m["status"] = p.Status
	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	return json.Marshal(m)
}

// RespondError writes an application/problem+json error
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondErrorWithExtras(w, status, detail, nil)
}

// RespondErrorWithExtras writes a problem body carrying extension members,
// e.g. the id of the resource a request conflicted with.
func RespondErrorWithExtras(w http.ResponseWriter, status int, detail string, extras map[string]any) {
	payload, err := json.Marshal(ProblemDetail{
		Type:       problemType(status),
		Title:      http.StatusText(status),
		Status:     status,
		Detail:     detail,
		Extensions: extras,
	})
	if err != nil {
		write(w, "text/plain", http.StatusInternalServerError, []byte("internal server error"))
		return
	}
	write(w, "application/problem+json", status, payload)
}

func write(w http.ResponseWriter, contentType string, status int, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func problemType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.1"
	case http.StatusNotFound:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.4"
	case http.StatusConflict:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.8"
	case http.StatusInternalServerError:
		return "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.1"
	default:
		return "about:blank"
	}
}
