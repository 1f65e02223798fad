package slide

import "slidegraph/internal/domain/models/llm"

// Event types
const (
	EventStatus       = "status"
	EventThinking     = "thinking"
	EventSlidePartial = "slide_partial"
	EventSlide        = "slide"
	EventDone         = "done"
	EventError        = "error"
	EventChatResponse = "chat_response"
)

// Status messages emitted by the generation engine
const (
	StatusThinking  = "thinking"
	StatusBuilding  = "building"
	StatusSearching = "searching"
	StatusPreparing = "preparing"
)

// Event is a generation event. It is a tagged union discriminated by Type;
// only the fields of that variant are set.
//
//	status        Message, Step
//	thinking      Text
//	slide_partial Slide
//	slide         Slide
//	done          SlideID, ChatID, Slide, ConversationHistory (all optional)
//	error         Message
//	chat_response ChatID, Content
//
// Within one generation, done or error occurs exactly once and last.
type Event struct {
	Type string `json:"type"`

	Message string `json:"message,omitempty"`
	Step    string `json:"step,omitempty"`
	Text    string `json:"text,omitempty"`
	Slide   *Slide `json:"slide,omitempty"`

	SlideID             string      `json:"slideId,omitempty"`
	ChatID              string      `json:"chatId,omitempty"`
	Content             string      `json:"content,omitempty"`
	ConversationHistory llm.History `json:"conversationHistory,omitempty"`
	Exists              bool        `json:"exists,omitempty"`

	// Prompt tags events of a speculative job with the branch prompt it
	// belongs to. Empty for ordinary generations.
	Prompt string `json:"prompt,omitempty"`
}

// IsTerminal reports whether the event ends a stream
func (e Event) IsTerminal() bool {
	return e.Type == EventDone || e.Type == EventError
}

// Status creates a status event
func Status(message, step string) Event {
	return Event{Type: EventStatus, Message: message, Step: step}
}

// Thinking creates a thinking event
func Thinking(text string) Event {
	return Event{Type: EventThinking, Text: text}
}

// Partial creates a slide_partial event
func Partial(s *Slide) Event {
	return Event{Type: EventSlidePartial, Slide: s}
}

// Final creates a slide event carrying the finalized slide
func Final(s *Slide) Event {
	return Event{Type: EventSlide, Slide: s}
}

// Done creates a done event
func Done(slideID string, s *Slide, history llm.History) Event {
	return Event{Type: EventDone, SlideID: slideID, Slide: s, ConversationHistory: history}
}

// Error creates an error event
func Error(message string) Event {
	return Event{Type: EventError, Message: message}
}

// ChatResponse creates a chat_response event
func ChatResponse(chatID, content string) Event {
	return Event{Type: EventChatResponse, ChatID: chatID, Content: content}
}
