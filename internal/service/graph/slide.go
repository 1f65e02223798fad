package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
	"slidegraph/internal/domain/services"
)

// SearchLimit caps the number of search hits
const SearchLimit = 20

// slideService implements the SlideService interface
type slideService struct {
	store  *repositories.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewSlideService creates a new slide service
func NewSlideService(store *repositories.Store, logger *slog.Logger) services.SlideService {
	return &slideService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CreateNode persists a finalized slide as a node
func (s *slideService) CreateNode(ctx context.Context, req *services.CreateNodeRequest) (*slide.Node, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Slide, validation.NotNil),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	id := uuid.New().String()
	sl := *req.Slide
	sl.ID = id

	history := req.History
	if history == nil {
		history = llm.History{}
	}

	node := &slide.Node{
		ID:                  id,
		Slide:               sl,
		ParentID:            req.ParentID,
		ConversationHistory: history,
		CreatedAt:           s.now().UTC(),
	}
	if p := strings.TrimSpace(req.SourcePrompt); p != "" {
		node.SourcePrompt = &p
	}

	err := s.store.Tx.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.store.Slides.Create(ctx, node); err != nil {
			return err
		}
		if req.IsMainChild && req.ParentID != nil {
			return s.store.Slides.SetMainChild(ctx, *req.ParentID, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("slide node created",
		"node_id", id,
		"title", sl.Title,
		"parent_id", derefString(req.ParentID),
		"main_child", req.IsMainChild,
	)

	return node, nil
}

// GetNode loads a node and its derived relations
func (s *slideService) GetNode(ctx context.Context, id string) (*slide.Node, error) {
	node, err := s.store.Slides.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		node.Children, err = s.store.Slides.Children(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		node.Links, err = s.store.Links.Outgoing(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		node.Backlinks, err = s.store.Links.Incoming(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		node.Chats, err = s.store.Chats.ListThreads(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load slide %s relations: %w", id, err)
	}

	return node, nil
}

// ListNodes returns all nodes, newest first
func (s *slideService) ListNodes(ctx context.Context) ([]slide.NodeSummary, error) {
	return s.store.Slides.List(ctx)
}

// SearchNodes matches query against titles and subtitles
func (s *slideService) SearchNodes(ctx context.Context, query string) ([]slide.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []slide.SearchHit{}, nil
	}
	return s.store.Slides.Search(ctx, query, SearchLimit)
}

// UpdateNode edits a node's title or main child
func (s *slideService) UpdateNode(ctx context.Context, id string, req *services.UpdateNodeRequest) (*slide.Node, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	patch := slide.NodePatch{MainChildID: req.MainChildID}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		patch.Title = &title
	}

	if err := s.store.Slides.Update(ctx, id, patch); err != nil {
		return nil, err
	}

	s.logger.Info("slide node updated", "node_id", id)

	return s.GetNode(ctx, id)
}

// Graph returns every node and link for visualization
func (s *slideService) Graph(ctx context.Context) (*slide.Graph, error) {
	nodes, err := s.store.Slides.GraphNodes(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := s.store.Links.Edges(ctx)
	if err != nil {
		return nil, err
	}
	return &slide.Graph{Nodes: nodes, Links: edges}, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
