package patient

import (
	"context"
	"fmt"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	apperrors "github.com/sigmarp/medical-api/pkg/errors"
	"github.com/sigmarp/medical-api/pkg/logger"
)

// Service manages the cross-visit study history of patients.
type Service struct {
	repo repository.PatientHistoryRepository
	log  *logger.Logger
}

func NewService(repo repository.PatientHistoryRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log.With("patient_service")}
}

// RegisterPatient opens an empty history. It is a no-op for known patients.
func (s *Service) RegisterPatient(ctx context.Context, dni string) (*model.PatientHistory, error) {
	if dni == "" {
		return nil, apperrors.BadRequest("dni is required", nil)
	}
	if err := s.repo.Register(ctx, dni); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("register patient %s: %w", dni, err))
	}
	s.log.Info("patient history registered", "patient_dni", dni)
	return s.GetHistory(ctx, dni)
}

func (s *Service) GetHistory(ctx context.Context, dni string) (*model.PatientHistory, error) {
	h, err := s.repo.Get(ctx, dni)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if h == nil {
		return nil, apperrors.NotFound("patient", nil)
	}
	if h.BloodAnalyses == nil {
		h.BloodAnalyses = []model.BloodAnalysis{}
	}
	if h.RadiologyStudies == nil {
		h.RadiologyStudies = []model.RadiologyStudy{}
	}
	return h, nil
}
