package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	"github.com/sigmarp/medical-api/pkg/docstore"
)

const (
	PatientsCollection = "patients"

	// appendAttempts bounds the retries of a read-modify-write that lost a
	// version race.
	appendAttempts = 3
)

type patientHistoryRepository struct {
	store docstore.Store
	now   func() time.Time
}

func NewPatientHistoryRepository(store docstore.Store) repository.PatientHistoryRepository {
	return &patientHistoryRepository{store: store, now: time.Now}
}

// Register creates an empty history. Registering an existing patient is a no-op.
func (r *patientHistoryRepository) Register(ctx context.Context, dni string) error {
	_, err := r.store.Get(ctx, PatientsCollection, dni)
	if err == nil {
		return nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("get patient %s: %w", dni, err)
	}

	now := r.now()
	err = r.store.Replace(ctx, PatientsCollection, dni, docstore.Document{
		"dni":                 dni,
		"blood_analyses":      []interface{}{},
		"radiology_studies":   []interface{}{},
		"created_at":          timeValue(&now),
		"updated_at":          timeValue(&now),
		docstore.VersionField: 1,
	}, 0)
	if errors.Is(err, docstore.ErrConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("register patient %s: %w", dni, err)
	}
	return nil
}

func (r *patientHistoryRepository) Get(ctx context.Context, dni string) (*model.PatientHistory, error) {
	doc, err := r.store.Get(ctx, PatientsCollection, dni)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get patient %s: %w", dni, err)
	}

	now := r.now()
	m := map[string]interface{}(doc)
	h := &model.PatientHistory{
		DNI:       dni,
		CreatedAt: timeOr(m, "created_at", now),
		UpdatedAt: timeOr(m, "updated_at", now),
	}
	for i, raw := range asList(m["blood_analyses"]) {
		var a model.BloodAnalysis
		sub, err := decodeRecord(raw, &a, "date_performed")
		if err != nil {
			return nil, fmt.Errorf("patient %s blood_analyses[%d]: %w", dni, i, err)
		}
		a.DatePerformed = timeOr(sub, "date_performed", now)
		h.BloodAnalyses = append(h.BloodAnalyses, a)
	}
	for i, raw := range asList(m["radiology_studies"]) {
		var s model.RadiologyStudy
		sub, err := decodeRecord(raw, &s, "date_performed")
		if err != nil {
			return nil, fmt.Errorf("patient %s radiology_studies[%d]: %w", dni, i, err)
		}
		s.DatePerformed = timeOr(sub, "date_performed", now)
		h.RadiologyStudies = append(h.RadiologyStudies, s)
	}
	return h, nil
}

func (r *patientHistoryRepository) AppendBloodAnalysis(ctx context.Context, dni string, a model.BloodAnalysis) error {
	entry, err := encodeRecord(&a, map[string]*time.Time{"date_performed": &a.DatePerformed})
	if err != nil {
		return fmt.Errorf("encode blood analysis: %w", err)
	}
	return r.appendEntry(ctx, dni, "blood_analyses", entry)
}

func (r *patientHistoryRepository) AppendRadiologyStudy(ctx context.Context, dni string, s model.RadiologyStudy) error {
	entry, err := encodeRecord(&s, map[string]*time.Time{"date_performed": &s.DatePerformed})
	if err != nil {
		return fmt.Errorf("encode radiology study: %w", err)
	}
	return r.appendEntry(ctx, dni, "radiology_studies", entry)
}

func (r *patientHistoryRepository) appendEntry(ctx context.Context, dni, field string, entry docstore.Document) error {
	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		var doc docstore.Document
		doc, err = r.store.Get(ctx, PatientsCollection, dni)
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("patient %s: %w", dni, repository.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get patient %s: %w", dni, err)
		}

		version := docstore.VersionOf(doc)
		now := r.now()
		doc[field] = append(asList(doc[field]), entry)
		doc["updated_at"] = timeValue(&now)
		doc[docstore.VersionField] = version + 1

		err = r.store.Replace(ctx, PatientsCollection, dni, doc, version)
		if !errors.Is(err, docstore.ErrConflict) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("append %s to patient %s: %w", field, dni, err)
	}
	return nil
}
