package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rxtrack/rxtrack/internal/platform/apperr"
)

type Service struct {
	repo      Repository
	templates *TemplateEngine
	log       zerolog.Logger
}

func NewService(repo Repository, templates *TemplateEngine, log zerolog.Logger) *Service {
	return &Service{repo: repo, templates: templates, log: log}
}

// Notify records a notification for ownerID. It never returns an error:
// a lifecycle operation must not fail because its notification could not
// be stored, so failures are logged and dropped.
func (s *Service) Notify(ctx context.Context, ownerID uuid.UUID, title, message, category string, relatedID *uuid.UUID) {
	n := &Notification{
		OwnerID:   ownerID,
		Title:     title,
		Message:   message,
		Category:  category,
		RelatedID: relatedID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.Error().Err(err).
			Str("owner_id", ownerID.String()).
			Str("title", title).
			Msg("failed to store notification")
	}
}

// NotifyTemplate renders a registered template and records the result.
// Unknown templates are logged and dropped, same as storage failures.
func (s *Service) NotifyTemplate(ctx context.Context, ownerID uuid.UUID, templateID, category string, data map[string]string, relatedID *uuid.UUID) {
	title, message, err := s.templates.Render(templateID, data)
	if err != nil {
		s.log.Error().Err(err).Str("template_id", templateID).Msg("failed to render notification template")
		return
	}
	s.Notify(ctx, ownerID, title, message, category, relatedID)
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	items, total, err := s.repo.ListByOwner(ctx, ownerID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence("list notifications", err)
	}
	return items, total, nil
}

func (s *Service) MarkRead(ctx context.Context, ownerID, id uuid.UUID) error {
	err := s.repo.MarkRead(ctx, ownerID, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("notification not found")
	}
	if err != nil {
		return apperr.Persistence("mark notification read", err)
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, ownerID uuid.UUID) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, ownerID)
	if err != nil {
		return 0, apperr.Persistence("mark all notifications read", err)
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	err := s.repo.Delete(ctx, ownerID, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("notification not found")
	}
	if err != nil {
		return apperr.Persistence("delete notification", err)
	}
	return nil
}
