package graph

import (
	"context"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/services"
	llmSvc "slidegraph/internal/domain/services/llm"
	"slidegraph/internal/service/pregen"
)

// ErrNoSlideMessage is the terminal error sent when a generation ends
// without a rendered slide
const ErrNoSlideMessage = "Failed to generate slide"

// Flow runs the generation flows behind the event stream endpoints: it
// generates, persists the result as a node and keeps speculation going for
// the node the user is looking at.
//
// Caller-input problems (missing prompt, unknown node) are reported by the
// constructor methods before any routine runs.
type Flow struct {
	slides         services.SlideService
	chats          services.ChatService
	generator      llmSvc.Generator
	coordinator    *pregen.Coordinator
	continuePrompt string
	logger         *slog.Logger
}

// NewFlow creates a flow. coordinator may be nil to disable speculation.
func NewFlow(
	slides services.SlideService,
	chats services.ChatService,
	generator llmSvc.Generator,
	coordinator *pregen.Coordinator,
	continuePrompt string,
	logger *slog.Logger,
) *Flow {
	return &Flow{
		slides:         slides,
		chats:          chats,
		generator:      generator,
		coordinator:    coordinator,
		continuePrompt: continuePrompt,
		logger:         logger,
	}
}

// Generate is a stateless generation: nothing is persisted and the done
// event carries the slide and the new history.
func (f *Flow) Generate(prompt string, history llm.History) (llmSvc.Routine, error) {
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}
	if err := history.CheckToolPairing(); err != nil {
		return nil, &domain.ValidationError{Field: "conversationHistory", Message: err.Error()}
	}

	return func(ctx context.Context, emit llmSvc.EmitFunc) (slide.Event, error) {
		result, err := f.generator.Generate(ctx, prompt, history, emit)
		if err != nil {
			return slide.Event{}, err
		}
		if result == nil {
			return slide.Error(ErrNoSlideMessage), nil
		}
		return slide.Done("", result.Slide, result.History), nil
	}, nil
}

// CreateRoot generates a new root node from a topic prompt
func (f *Flow) CreateRoot(prompt string) (llmSvc.Routine, error) {
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}

	return func(ctx context.Context, emit llmSvc.EmitFunc) (slide.Event, error) {
		if f.coordinator != nil {
			f.coordinator.Invalidate()
		}

		result, err := f.generator.Generate(ctx, prompt, nil, emit)
		if err != nil {
			return slide.Event{}, err
		}
		if result == nil {
			return slide.Error(ErrNoSlideMessage), nil
		}

		node, err := f.slides.CreateNode(ctx, &services.CreateNodeRequest{
			Slide:        result.Slide,
			History:      result.History,
			SourcePrompt: prompt,
		})
		if err != nil {
			return slide.Event{}, err
		}

		f.speculate(node.ID, result.Slide, result.History, false)
		return slide.Done(node.ID, nil, result.History), nil
	}, nil
}

// Branch generates a child of nodeID for an action prompt, reusing a
// speculative generation when one exists
func (f *Flow) Branch(ctx context.Context, nodeID, prompt string) (llmSvc.Routine, error) {
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}
	parent, err := f.slides.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return f.child(parent, prompt, false), nil
}

// Continue returns the existing main child of nodeID, or a routine that
// generates one
func (f *Flow) Continue(ctx context.Context, nodeID string) (existing string, routine llmSvc.Routine, err error) {
	parent, err := f.slides.GetNode(ctx, nodeID)
	if err != nil {
		return "", nil, err
	}
	if parent.MainChildID != nil && *parent.MainChildID != "" {
		return *parent.MainChildID, nil, nil
	}
	return "", f.child(parent, f.continuePrompt, true), nil
}

// ChatToSlide generates a child of nodeID from a chat thread
func (f *Flow) ChatToSlide(ctx context.Context, nodeID, chatID string) (llmSvc.Routine, error) {
	prompt, err := f.chats.SlidePrompt(ctx, nodeID, chatID)
	if err != nil {
		return nil, err
	}
	parent, err := f.slides.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return f.child(parent, prompt, false), nil
}

// Chat answers a chat message about a node's text
func (f *Flow) Chat(ctx context.Context, nodeID string, req *services.ChatRequest) (llmSvc.Routine, error) {
	turn, err := f.chats.Open(ctx, nodeID, req)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, emit llmSvc.EmitFunc) (slide.Event, error) {
		if err := emit(ctx, slide.Status("Thinking...", slide.StatusThinking)); err != nil {
			return slide.Event{}, err
		}
		content, err := f.chats.Answer(ctx, turn)
		if err != nil {
			return slide.Event{}, err
		}
		if err := emit(ctx, slide.ChatResponse(turn.Thread.ID, content)); err != nil {
			return slide.Event{}, err
		}
		return slide.Event{Type: slide.EventDone, ChatID: turn.Thread.ID}, nil
	}, nil
}

// Speculate (re)starts speculation for the branches of nodeID
func (f *Flow) Speculate(ctx context.Context, nodeID string) ([]pregen.EntryStatus, error) {
	node, err := f.slides.GetNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	f.speculate(node.ID, &node.Slide, node.ConversationHistory, node.MainChildID != nil)
	return f.PregenStatus(nodeID), nil
}

// PregenStatus reports the speculative jobs of nodeID
func (f *Flow) PregenStatus(nodeID string) []pregen.EntryStatus {
	if f.coordinator == nil {
		return []pregen.EntryStatus{}
	}
	return f.coordinator.Snapshot(nodeID)
}

// Invalidate cancels all speculation, e.g. when the user navigates away
func (f *Flow) Invalidate() {
	if f.coordinator != nil {
		f.coordinator.Invalidate()
	}
}

func (f *Flow) speculate(nodeID string, s *slide.Slide, history llm.History, hasMainChild bool) {
	if f.coordinator == nil {
		return
	}
	prompts := s.ActionPrompts()
	if !hasMainChild && f.continuePrompt != "" {
		prompts = append(prompts, f.continuePrompt)
	}
	jobs := f.coordinator.Speculate(nodeID, history, prompts)
	f.logger.Debug("speculation started", "node_id", nodeID, "jobs", len(jobs))
}

// child builds the routine generating a child of parent for prompt
func (f *Flow) child(parent *slide.Node, prompt string, isMain bool) llmSvc.Routine {
	parentID := parent.ID
	commit := func(ctx context.Context, result *llmSvc.GenerationResult) (string, error) {
		node, err := f.slides.CreateNode(ctx, &services.CreateNodeRequest{
			Slide:        result.Slide,
			ParentID:     &parentID,
			History:      result.History,
			SourcePrompt: prompt,
			IsMainChild:  isMain,
		})
		if err != nil {
			return "", err
		}
		return node.ID, nil
	}

	return func(ctx context.Context, emit llmSvc.EmitFunc) (slide.Event, error) {
		if f.coordinator != nil {
			if job, first := f.coordinator.Claim(parentID, prompt); job != nil {
				nodeID, result, err := f.awaitClaim(ctx, job, first, commit, emit)
				switch {
				case err == nil:
					f.speculate(nodeID, result.Slide, result.History, false)
					return slide.Done(nodeID, nil, result.History), nil
				case ctx.Err() != nil || job.Complete():
					return slide.Event{}, err
				}
				// The speculative generation itself failed; generate fresh
				f.logger.Warn("claimed speculation failed, regenerating",
					"node_id", parentID,
					"prompt", prompt,
					"error", err,
				)
			} else {
				f.coordinator.Invalidate()
			}
		}

		result, err := f.generator.Generate(ctx, prompt, parent.ConversationHistory, emit)
		if err != nil {
			return slide.Event{}, err
		}
		if result == nil {
			return slide.Error(ErrNoSlideMessage), nil
		}
		nodeID, err := commit(ctx, result)
		if err != nil {
			return slide.Event{}, err
		}

		f.speculate(nodeID, result.Slide, result.History, false)
		return slide.Done(nodeID, nil, result.History), nil
	}
}

// awaitClaim follows a claimed job to completion, forwarding its progress,
// then commits its result. Every claimer of a job gets the node of the one
// commit.
func (f *Flow) awaitClaim(
	ctx context.Context,
	job *pregen.Job,
	first bool,
	commit pregen.CommitFunc,
	emit llmSvc.EmitFunc,
) (string, *llmSvc.GenerationResult, error) {
	f.logger.Info("speculation claimed",
		"node_id", job.NodeID(),
		"prompt", job.Prompt(),
		"complete", job.Complete(),
		"first", first,
	)

	if !job.Complete() {
		if err := f.follow(ctx, job, emit); err != nil {
			return "", nil, err
		}
	}

	nodeID, result, err := job.Commit(ctx, commit)
	if err != nil {
		return "", nil, err
	}
	if err := emit(ctx, slide.Final(result.Slide)); err != nil {
		return "", nil, err
	}
	return nodeID, result, nil
}

// follow forwards an in-flight job's events until it finishes. The final
// slide is left to the claimer so it is emitted exactly once.
func (f *Flow) follow(ctx context.Context, job *pregen.Job, emit llmSvc.EmitFunc) error {
	if err := emit(ctx, slide.Status("Preparing...", slide.StatusPreparing)); err != nil {
		return err
	}

	events, latest, unsubscribe := job.Subscribe()
	defer unsubscribe()

	if latest != nil {
		if err := emit(ctx, slide.Partial(latest)); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type == slide.EventSlide || ev.IsTerminal() {
				continue
			}
			if err := emit(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func validatePrompt(prompt string) error {
	if err := validation.Validate(strings.TrimSpace(prompt), validation.Required.Error("missing prompt")); err != nil {
		return &domain.ValidationError{Field: "prompt", Message: err.Error()}
	}
	return nil
}
