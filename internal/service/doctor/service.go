package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	apperrors "github.com/sigmarp/medical-api/pkg/errors"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/metrics"
	"github.com/sigmarp/medical-api/pkg/validator"
)

const DefaultTTL = 5 * time.Minute

type Service struct {
	repo     repository.DoctorRepository
	cache    *cache.Cache
	validate validator.Validator
	log      *logger.Logger
}

func NewService(repo repository.DoctorRepository, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:     repo,
		cache:    cache.New(ttl, 2*ttl),
		validate: validator.New(),
		log:      log.With("doctor_service"),
	}
}

// Lookup returns the profile for dni, or nil when it is unknown or the
// store cannot be read. Only found profiles are cached.
func (s *Service) Lookup(ctx context.Context, dni string) *model.Doctor {
	if dni == "" {
		return nil
	}
	if cached, ok := s.cache.Get(dni); ok {
		metrics.RecordDoctorLookup("hit")
		d := cached.(model.Doctor)
		return &d
	}

	d, err := s.repo.GetByDNI(ctx, dni)
	if err != nil {
		metrics.RecordDoctorLookup("error")
		s.log.Error(err, "doctor lookup failed", "dni", dni)
		return nil
	}
	if d == nil {
		metrics.RecordDoctorLookup("miss")
		return nil
	}
	metrics.RecordDoctorLookup("store")
	s.cache.Set(dni, *d, cache.DefaultExpiration)
	return d
}

type UpsertDoctorRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Specialty string `json:"specialty"`
}

func (s *Service) Upsert(ctx context.Context, dni string, req UpsertDoctorRequest) (*model.Doctor, error) {
	if dni == "" {
		return nil, apperrors.BadRequest("dni is required", nil)
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.BadRequest("invalid doctor profile", err)
	}

	d := &model.Doctor{DNI: dni, Name: req.Name, Email: req.Email, Specialty: req.Specialty}
	if err := s.repo.Upsert(ctx, d); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("upsert doctor %s: %w", dni, err))
	}
	s.cache.Delete(dni)
	return d, nil
}

func (s *Service) Get(ctx context.Context, dni string) (*model.Doctor, error) {
	d := s.Lookup(ctx, dni)
	if d == nil {
		return nil, apperrors.NotFound("doctor", nil)
	}
	return d, nil
}
