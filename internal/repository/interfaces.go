package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/pkg/docstore"
)

var (
	ErrNotFound              = docstore.ErrNotFound
	ErrUnsupportedProfession = errors.New("profession not supported for recruitment")
)

// All repository interfaces in one file
type (
	// VisitRepository never surfaces store failures: reads degrade to nil or
	// an empty slice and writes report success as a bool. Causes are logged.
	VisitRepository interface {
		GetByID(ctx context.Context, id string) *model.Visit
		Create(ctx context.Context, visit *model.Visit) bool
		// Update refreshes UpdatedAt and writes only if the stored version
		// still matches visit.Version. On success visit.Version is advanced.
		Update(ctx context.Context, visit *model.Visit) bool
		Delete(ctx context.Context, id string) bool
		GetByPatient(ctx context.Context, patientDNI string) []*model.Visit
		GetByDoctor(ctx context.Context, doctorDNI string) []*model.Visit
		GetByStatus(ctx context.Context, status model.VisitStatus) []*model.Visit
		GetAll(ctx context.Context) []*model.Visit
	}

	RecruitmentRepository interface {
		Create(ctx context.Context, r *model.Recruitment) error
		// Get returns nil, nil when the application does not exist.
		Get(ctx context.Context, profession model.Profession, id string) (*model.Recruitment, error)
		// List orders newest first. A nil attended lists every application.
		List(ctx context.Context, profession model.Profession, attended *bool) ([]*model.Recruitment, error)
		// MarkAttended fails with ErrNotFound without creating anything.
		MarkAttended(ctx context.Context, profession model.Profession, id, attendedBy string, at time.Time) (*model.Recruitment, error)
	}

	DoctorRepository interface {
		// GetByDNI returns nil, nil when no profile exists.
		GetByDNI(ctx context.Context, dni string) (*model.Doctor, error)
		Upsert(ctx context.Context, doctor *model.Doctor) error
	}

	UserRepository interface {
		// GetByDNI returns nil, nil when no account exists.
		GetByDNI(ctx context.Context, dni string) (*model.User, error)
		Upsert(ctx context.Context, user *model.User) error
		List(ctx context.Context) ([]*model.User, error)
	}

	PatientHistoryRepository interface {
		Register(ctx context.Context, patientDNI string) error
		// Get returns nil, nil when the patient is not registered.
		Get(ctx context.Context, patientDNI string) (*model.PatientHistory, error)
		AppendBloodAnalysis(ctx context.Context, patientDNI string, analysis model.BloodAnalysis) error
		AppendRadiologyStudy(ctx context.Context, patientDNI string, study model.RadiologyStudy) error
	}
)
