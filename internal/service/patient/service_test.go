package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository/document"
	"github.com/sigmarp/medical-api/pkg/docstore/memory"
	apperrors "github.com/sigmarp/medical-api/pkg/errors"
	"github.com/sigmarp/medical-api/pkg/logger"
)

func TestRegisterPatient(t *testing.T) {
	ctx := context.Background()
	repo := document.NewPatientHistoryRepository(memory.New())
	svc := NewService(repo, logger.Nop())

	h, err := svc.RegisterPatient(ctx, "30111222")
	require.NoError(t, err)
	assert.Equal(t, "30111222", h.DNI)
	assert.NotNil(t, h.BloodAnalyses)
	assert.Empty(t, h.BloodAnalyses)
	assert.NotNil(t, h.RadiologyStudies)

	require.NoError(t, repo.AppendBloodAnalysis(ctx, "30111222", model.BloodAnalysis{AnalysisID: "a1"}))

	again, err := svc.RegisterPatient(ctx, "30111222")
	require.NoError(t, err)
	require.Len(t, again.BloodAnalyses, 1, "registering twice keeps the history")
}

func TestRegisterPatient_RequiresDNI(t *testing.T) {
	svc := NewService(document.NewPatientHistoryRepository(memory.New()), logger.Nop())

	_, err := svc.RegisterPatient(context.Background(), "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestGetHistory_Missing(t *testing.T) {
	svc := NewService(document.NewPatientHistoryRepository(memory.New()), logger.Nop())

	_, err := svc.GetHistory(context.Background(), "nobody")
	assert.True(t, apperrors.IsNotFound(err))
}

type failingRepo struct{ err error }

func (f failingRepo) Register(context.Context, string) error { return f.err }
func (f failingRepo) Get(context.Context, string) (*model.PatientHistory, error) {
	return nil, f.err
}
func (f failingRepo) AppendBloodAnalysis(context.Context, string, model.BloodAnalysis) error {
	return f.err
}
func (f failingRepo) AppendRadiologyStudy(context.Context, string, model.RadiologyStudy) error {
	return f.err
}

func TestStoreFailuresAreInternal(t *testing.T) {
	svc := NewService(failingRepo{err: errors.New("connection reset")}, logger.Nop())

	_, err := svc.RegisterPatient(context.Background(), "1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInternal))

	_, err = svc.GetHistory(context.Background(), "1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInternal))
}
