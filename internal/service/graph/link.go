package graph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/domain/repositories"
	"slidegraph/internal/domain/services"
)

// linkService implements the LinkService interface
type linkService struct {
	store  *repositories.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLinkService creates a new link service
func NewLinkService(store *repositories.Store, logger *slog.Logger) services.LinkService {
	return &linkService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// AddLink links two distinct, existing nodes
func (s *linkService) AddLink(ctx context.Context, req *services.CreateLinkRequest) (*slide.Link, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.FromNodeID, validation.Required),
		validation.Field(&req.ToNodeID, validation.Required.Error("missing toSlideId")),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.FromNodeID == req.ToNodeID {
		return nil, fmt.Errorf("cannot link a slide to itself: %w", domain.ErrInvalidArgument)
	}

	for _, id := range []string{req.FromNodeID, req.ToNodeID} {
		ok, err := s.store.Slides.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("slide %s: %w", id, domain.ErrNotFound)
		}
	}

	link := &slide.Link{
		ID:         uuid.New().String(),
		FromNodeID: req.FromNodeID,
		ToNodeID:   req.ToNodeID,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.Links.Create(ctx, link); err != nil {
		return nil, err
	}

	s.logger.Info("link created",
		"link_id", link.ID,
		"from", link.FromNodeID,
		"to", link.ToNodeID,
	)

	return link, nil
}

// RemoveLink deletes a link
func (s *linkService) RemoveLink(ctx context.Context, linkID string) error {
	if err := validation.Validate(linkID, validation.Required.Error("missing linkId")); err != nil {
		return &domain.ValidationError{Field: "linkId", Message: err.Error()}
	}
	if err := s.store.Links.Delete(ctx, linkID); err != nil {
		return err
	}
	s.logger.Info("link removed", "link_id", linkID)
	return nil
}
