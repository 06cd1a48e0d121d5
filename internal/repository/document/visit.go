package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	"github.com/sigmarp/medical-api/pkg/docstore"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/metrics"
)

const VisitsCollection = "visits"

type visitRepository struct {
	store docstore.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewVisitRepository(store docstore.Store, log *logger.Logger) repository.VisitRepository {
	return newVisitRepository(store, log)
}

func newVisitRepository(store docstore.Store, log *logger.Logger) *visitRepository {
	return &visitRepository{store: store, log: log.With("visit_repository"), now: time.Now}
}

func (r *visitRepository) GetByID(ctx context.Context, id string) *model.Visit {
	doc, err := r.store.Get(ctx, VisitsCollection, id)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			metrics.RecordStoreError(VisitsCollection, "get")
			r.log.Error(err, "failed to read visit", "visit_id", id)
		}
		return nil
	}

	visit, err := r.decode(id, doc)
	if err != nil {
		metrics.RecordStoreError(VisitsCollection, "decode")
		r.log.Error(err, "failed to decode visit", "visit_id", id)
		return nil
	}
	return visit
}

func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) bool {
	visit.Version = 1
	doc, err := r.encode(visit)
	if err == nil {
		err = r.store.Put(ctx, VisitsCollection, visit.ID, doc)
	}
	if err != nil {
		visit.Version = 0
		metrics.RecordStoreError(VisitsCollection, "create")
		r.log.Error(err, "failed to create visit", "visit_id", visit.ID)
		return false
	}
	r.log.Info("visit created", "visit_id", visit.ID)
	return true
}

func (r *visitRepository) Update(ctx context.Context, visit *model.Visit) bool {
	visit.Touch("", r.now())

	expected := visit.Version
	visit.Version = expected + 1
	doc, err := r.encode(visit)
	if err == nil {
		err = r.store.Replace(ctx, VisitsCollection, visit.ID, doc, expected)
	}
	if err != nil {
		visit.Version = expected
		op := "update"
		if errors.Is(err, docstore.ErrConflict) {
			op = "conflict"
		}
		metrics.RecordStoreError(VisitsCollection, op)
		r.log.Error(err, "failed to update visit", "visit_id", visit.ID, "version", expected)
		return false
	}
	r.log.Info("visit updated", "visit_id", visit.ID, "version", visit.Version)
	return true
}

func (r *visitRepository) Delete(ctx context.Context, id string) bool {
	if err := r.store.Delete(ctx, VisitsCollection, id); err != nil {
		metrics.RecordStoreError(VisitsCollection, "delete")
		r.log.Error(err, "failed to delete visit", "visit_id", id)
		return false
	}
	r.log.Info("visit deleted", "visit_id", id)
	return true
}

func (r *visitRepository) GetByPatient(ctx context.Context, patientDNI string) []*model.Visit {
	return r.find(ctx, byAdmission().Where("patient_dni", patientDNI), "patient_dni", patientDNI)
}

func (r *visitRepository) GetByDoctor(ctx context.Context, doctorDNI string) []*model.Visit {
	return r.find(ctx, byAdmission().Where("attending_doctor_dni", doctorDNI), "attending_doctor_dni", doctorDNI)
}

func (r *visitRepository) GetByStatus(ctx context.Context, status model.VisitStatus) []*model.Visit {
	return r.find(ctx, byAdmission().Where("visit_status", string(status)), "visit_status", status)
}

func (r *visitRepository) GetAll(ctx context.Context) []*model.Visit {
	return r.find(ctx, byAdmission())
}

func byAdmission() docstore.Query {
	return docstore.Query{}.OrderByDesc("admission_date")
}

func (r *visitRepository) find(ctx context.Context, q docstore.Query, fields ...interface{}) []*model.Visit {
	snaps, err := r.store.Find(ctx, VisitsCollection, q)
	if err != nil {
		metrics.RecordStoreError(VisitsCollection, "find")
		r.log.Error(err, "failed to query visits", fields...)
		return []*model.Visit{}
	}

	visits := make([]*model.Visit, 0, len(snaps))
	for _, snap := range snaps {
		visit, err := r.decode(snap.ID, snap.Data)
		if err != nil {
			metrics.RecordStoreError(VisitsCollection, "decode")
			r.log.Error(err, "skipping undecodable visit", "visit_id", snap.ID)
			continue
		}
		visits = append(visits, visit)
	}
	return visits
}

func (r *visitRepository) encode(v *model.Visit) (docstore.Document, error) {
	var vitals interface{}
	if v.AdmissionVitalSigns != nil {
		vs := v.AdmissionVitalSigns
		doc, err := encodeRecord(vs, map[string]*time.Time{"measured_at": &vs.MeasuredAt})
		if err != nil {
			return nil, fmt.Errorf("encode vital signs: %w", err)
		}
		vitals = doc
	}

	analyses := make([]interface{}, 0, len(v.BloodAnalyses))
	for i := range v.BloodAnalyses {
		a := &v.BloodAnalyses[i]
		doc, err := encodeRecord(a, map[string]*time.Time{"date_performed": &a.DatePerformed})
		if err != nil {
			return nil, fmt.Errorf("encode blood analysis %s: %w", a.AnalysisID, err)
		}
		analyses = append(analyses, doc)
	}

	studies := make([]interface{}, 0, len(v.RadiologyStudies))
	for i := range v.RadiologyStudies {
		s := &v.RadiologyStudies[i]
		doc, err := encodeRecord(s, map[string]*time.Time{"date_performed": &s.DatePerformed})
		if err != nil {
			return nil, fmt.Errorf("encode radiology study %s: %w", s.StudyID, err)
		}
		studies = append(studies, doc)
	}

	quality := v.QualityIndicators
	if quality == nil {
		quality = map[string]interface{}{}
	}

	return docstore.Document{
		"visit_id":              v.ID,
		"patient_dni":           v.PatientDNI,
		"reason":                v.Reason,
		"attention_place":       string(v.AttentionPlace),
		"attention_details":     optStr(v.AttentionDetails),
		"location":              v.Location,
		"visit_status":          string(v.Status),
		"triage":                optStr(string(v.Triage)),
		"priority_level":        v.PriorityLevel,
		"attending_doctor_dni":  v.AttendingDoctorDNI,
		"admission_vital_signs": vitals,
		"diagnoses":             v.Diagnoses,
		"procedures":            v.Procedures,
		"evolutions":            v.Evolutions,
		"prescriptions":         v.Prescriptions,
		"treatment":             v.Treatment,
		"evolution":             v.Evolution,
		"nursing_notes":         v.NursingNotes,
		"blood_analyses":        analyses,
		"radiology_studies":     studies,
		"created_at":            timeValue(&v.CreatedAt),
		"updated_at":            timeValue(&v.UpdatedAt),
		"admission_date":        timeValue(&v.AdmissionDate),
		"discharge_date":        timeValue(v.DischargeDate),
		"created_by":            optStr(v.CreatedBy),
		"last_updated_by":       optStr(v.LastUpdatedBy),
		"is_completed":          v.IsCompleted,
		"quality_indicators":    quality,
		docstore.VersionField:   v.Version,
	}, nil
}

// decode maps a stored document back to a Visit. Malformed timestamps never
// fail the read: they fall back to now, or to nil for the discharge date.
func (r *visitRepository) decode(id string, doc docstore.Document) (*model.Visit, error) {
	now := r.now()
	m := map[string]interface{}(doc)

	v := &model.Visit{
		ID:                 str(m, "visit_id"),
		PatientDNI:         str(m, "patient_dni"),
		Reason:             str(m, "reason"),
		AttentionPlace:     model.AttentionPlace(str(m, "attention_place")),
		AttentionDetails:   str(m, "attention_details"),
		Location:           str(m, "location"),
		Status:             model.VisitStatus(str(m, "visit_status")),
		Triage:             model.Triage(str(m, "triage")),
		PriorityLevel:      integer(m, "priority_level", model.DefaultPriority),
		AttendingDoctorDNI: str(m, "attending_doctor_dni"),
		Treatment:          str(m, "treatment"),
		Evolution:          str(m, "evolution"),
		NursingNotes:       str(m, "nursing_notes"),
		CreatedAt:          timeOr(m, "created_at", now),
		UpdatedAt:          timeOr(m, "updated_at", now),
		AdmissionDate:      timeOr(m, "admission_date", now),
		DischargeDate:      optTime(m, "discharge_date"),
		CreatedBy:          str(m, "created_by"),
		LastUpdatedBy:      str(m, "last_updated_by"),
		IsCompleted:        boolean(m, "is_completed"),
		Version:            docstore.VersionOf(doc),
	}
	if v.ID == "" {
		v.ID = id
	}
	if v.PatientDNI == "" {
		return nil, fmt.Errorf("visit %s has no patient_dni", id)
	}
	if v.Status == "" {
		v.Status = model.VisitStatusAdmission
	}
	if q, ok := asMap(m["quality_indicators"]); ok {
		v.QualityIndicators = q
	}

	v.Diagnoses = logField(m["diagnoses"], func() lineRenderer { return &model.Diagnosis{} })
	v.Procedures = logField(m["procedures"], func() lineRenderer { return &model.Procedure{} })
	v.Evolutions = logField(m["evolutions"], func() lineRenderer { return &model.Evolution{} })
	v.Prescriptions = logField(m["prescriptions"], func() lineRenderer { return &model.Prescription{} })

	if raw := m["admission_vital_signs"]; raw != nil {
		var vs model.VitalSigns
		sub, err := decodeRecord(raw, &vs, "measured_at")
		if err != nil {
			return nil, fmt.Errorf("admission_vital_signs: %w", err)
		}
		vs.MeasuredAt = timeOr(sub, "measured_at", now)
		v.AdmissionVitalSigns = &vs
	}

	for i, raw := range asList(m["blood_analyses"]) {
		var a model.BloodAnalysis
		sub, err := decodeRecord(raw, &a, "date_performed")
		if err != nil {
			return nil, fmt.Errorf("blood_analyses[%d]: %w", i, err)
		}
		a.DatePerformed = timeOr(sub, "date_performed", now)
		v.BloodAnalyses = append(v.BloodAnalyses, a)
	}

	for i, raw := range asList(m["radiology_studies"]) {
		var s model.RadiologyStudy
		sub, err := decodeRecord(raw, &s, "date_performed")
		if err != nil {
			return nil, fmt.Errorf("radiology_studies[%d]: %w", i, err)
		}
		s.DatePerformed = timeOr(sub, "date_performed", now)
		v.RadiologyStudies = append(v.RadiologyStudies, s)
	}

	return v, nil
}

type lineRenderer interface {
	Line() string
}

// logField reads a clinical log. Older documents hold a list of structured
// entries instead of text; those are rendered into lines and their entry
// timestamps are dropped.
func logField(raw interface{}, entry func() lineRenderer) string {
	switch val := raw.(type) {
	case string:
		return val
	case nil:
		return ""
	}

	var lines []string
	for _, item := range asList(raw) {
		e := entry()
		if _, err := decodeRecord(item, e, "diagnosed_at", "performed_at", "recorded_at", "prescribed_at"); err != nil {
			continue
		}
		lines = append(lines, e.Line())
	}
	return strings.Join(lines, "\n")
}
