package recruitment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/notify"
	"github.com/sigmarp/medical-api/internal/repository"
	apperrors "github.com/sigmarp/medical-api/pkg/errors"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/messaging"
	"github.com/sigmarp/medical-api/pkg/metrics"
	"github.com/sigmarp/medical-api/pkg/validator"
)

type Service struct {
	repo     repository.RecruitmentRepository
	notifier notify.Notifier
	events   messaging.Publisher
	validate validator.Validator
	log      *logger.Logger
	now      func() time.Time
}

func NewService(repo repository.RecruitmentRepository, notifier notify.Notifier, events messaging.Publisher, log *logger.Logger) *Service {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	if events == nil {
		events = messaging.NopPublisher{}
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		events:   events,
		validate: validator.New(),
		log:      log.With("recruitment_service"),
		now:      time.Now,
	}
}

// CreateRecruitment stores the application and then announces it. A failed
// announcement is logged and never fails the create.
func (s *Service) CreateRecruitment(ctx context.Context, req model.CreateRecruitmentRequest) (*model.Recruitment, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.BadRequest("invalid recruitment application", err)
	}
	profession, err := parseProfession(string(req.Profession))
	if err != nil {
		return nil, err
	}

	rec := &model.Recruitment{
		ID:          uuid.New().String(),
		Name:        req.Name,
		DNI:         req.DNI,
		Discord:     req.Discord,
		Phone:       req.Phone,
		Profession:  profession,
		Motivation:  req.Motivation,
		Experience:  req.Experience,
		Description: req.Description,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, storeError(err)
	}

	if err := s.notifier.NotifyRecruitment(ctx, rec); err != nil {
		s.log.Error(err, "recruitment notification failed", "recruitment_id", rec.ID, "profession", rec.Profession)
	}
	if err := s.events.Publish(ctx, messaging.EventRecruitmentCreated, rec); err != nil {
		metrics.RecordEvent(messaging.EventRecruitmentCreated, "error")
		s.log.Error(err, "failed to publish event", "event_type", messaging.EventRecruitmentCreated)
	} else {
		metrics.RecordEvent(messaging.EventRecruitmentCreated, "accepted")
	}
	return rec, nil
}

// ListRecruitments returns applications newest first, optionally filtered by
// attended state.
func (s *Service) ListRecruitments(ctx context.Context, actor model.Actor, profession string, attended *bool) ([]*model.Recruitment, error) {
	p, err := s.authorize(actor, profession)
	if err != nil {
		return nil, err
	}
	recs, err := s.repo.List(ctx, p, attended)
	if err != nil {
		return nil, storeError(err)
	}
	return recs, nil
}

func (s *Service) ListUnattended(ctx context.Context, actor model.Actor, profession string) ([]*model.Recruitment, error) {
	pending := false
	return s.ListRecruitments(ctx, actor, profession, &pending)
}

func (s *Service) GetRecruitment(ctx context.Context, actor model.Actor, profession, id string) (*model.Recruitment, error) {
	p, err := s.authorize(actor, profession)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, p, id)
	if err != nil {
		return nil, storeError(err)
	}
	if rec == nil {
		return nil, apperrors.NotFound("recruitment", nil)
	}
	return rec, nil
}

// MarkAttended records actor as the reviewer. Re-attending overwrites the
// previous reviewer.
func (s *Service) MarkAttended(ctx context.Context, actor model.Actor, profession, id string) (*model.Recruitment, error) {
	p, err := s.authorize(actor, profession)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.MarkAttended(ctx, p, id, actor.DNI, s.now())
	if err != nil {
		return nil, storeError(err)
	}
	s.log.Info("recruitment attended", "recruitment_id", id, "profession", p, "attended_by", actor.DNI)
	return rec, nil
}

func (s *Service) authorize(actor model.Actor, profession string) (model.Profession, error) {
	p, err := parseProfession(profession)
	if err != nil {
		return "", err
	}
	if !actor.CanRecruit(p) {
		return "", apperrors.Forbidden(fmt.Sprintf("not allowed to review %s applications", p))
	}
	return p, nil
}

func parseProfession(s string) (model.Profession, error) {
	p, ok := model.ParseProfession(s)
	if !ok {
		return "", apperrors.BadRequest(fmt.Sprintf("profession %q not supported for recruitment", s), repository.ErrUnsupportedProfession)
	}
	return p, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("recruitment", err)
	case errors.Is(err, repository.ErrUnsupportedProfession):
		return apperrors.BadRequest("profession not supported for recruitment", err)
	}
	return apperrors.Internal(err)
}
