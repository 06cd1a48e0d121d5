package visit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	apperrors "github.com/sigmarp/medical-api/pkg/errors"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/messaging"
	"github.com/sigmarp/medical-api/pkg/metrics"
	"github.com/sigmarp/medical-api/pkg/validator"
)

// DoctorDirectory resolves display data for attending professionals.
type DoctorDirectory interface {
	Lookup(ctx context.Context, dni string) *model.Doctor
}

type Service struct {
	repo     repository.VisitRepository
	doctors  DoctorDirectory
	history  repository.PatientHistoryRepository
	events   messaging.Publisher
	validate validator.Validator
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(
	repo repository.VisitRepository,
	doctors DoctorDirectory,
	history repository.PatientHistoryRepository,
	events messaging.Publisher,
	log *logger.Logger,
	opts ...Option,
) *Service {
	if events == nil {
		events = messaging.NopPublisher{}
	}
	s := &Service{
		repo:     repo,
		doctors:  doctors,
		history:  history,
		events:   events,
		validate: validator.New(),
		log:      log.With("visit_service"),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateVisit(ctx context.Context, req model.CreateVisitRequest, actor model.Actor) (*model.VisitResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.BadRequest("invalid visit", err)
	}

	now := s.now()
	v := &model.Visit{
		ID:                 s.newID(),
		PatientDNI:         req.PatientDNI,
		Reason:             req.Reason,
		AttentionPlace:     req.AttentionPlace,
		AttentionDetails:   req.AttentionDetails,
		Location:           req.Location,
		Status:             model.VisitStatusAdmission,
		Triage:             req.Triage,
		PriorityLevel:      model.DefaultPriority,
		AttendingDoctorDNI: actor.DNI,
		CreatedAt:          now,
		UpdatedAt:          now,
		AdmissionDate:      now,
		CreatedBy:          actor.DNI,
		LastUpdatedBy:      actor.DNI,
	}
	if req.PriorityLevel != nil {
		v.PriorityLevel = *req.PriorityLevel
	}
	if req.HasAdmissionVitals() {
		v.AdmissionVitalSigns = &model.VitalSigns{
			MeasurementID:    s.newID(),
			MeasuredAt:       now,
			HeartRate:        req.AdmissionHeartRate,
			SystolicPressure: req.AdmissionBloodPressure,
			Temperature:      req.AdmissionTemperature,
			OxygenSaturation: req.AdmissionOxygenSaturation,
			MeasuredBy:       actor.DNI,
		}
	}

	if !s.repo.Create(ctx, v) {
		return nil, apperrors.Internal(fmt.Errorf("create visit for patient %s", v.PatientDNI))
	}
	s.publish(ctx, messaging.EventVisitCreated, v)

	doctor := s.doctors.Lookup(ctx, actor.DNI)
	if doctor == nil {
		doctor = &model.Doctor{DNI: actor.DNI, Name: actor.Name}
	}
	resp := toResponse(v, doctor)
	return &resp, nil
}

// UpdateVisit applies only the fields present in req. Admission vitals are
// merged into the existing snapshot.
func (s *Service) UpdateVisit(ctx context.Context, id string, req model.UpdateVisitRequest, actor model.Actor) (*model.VisitResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.BadRequest("invalid visit update", err)
	}

	v, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		return applyUpdate(v, req, actor.DNI, now, s.newID)
	})
	if err != nil {
		return nil, err
	}
	resp := s.response(ctx, v)
	return &resp, nil
}

func (s *Service) DischargeVisit(ctx context.Context, id string, actor model.Actor) (*model.VisitResponse, error) {
	v, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		return v.Discharge(actor.DNI, now)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, messaging.EventVisitDischarged, v)

	resp := s.response(ctx, v)
	return &resp, nil
}

// DeleteVisit removes the visit permanently. Deleting an unknown id succeeds.
func (s *Service) DeleteVisit(ctx context.Context, id string) error {
	if !s.repo.Delete(ctx, id) {
		return apperrors.Internal(fmt.Errorf("delete visit %s", id))
	}
	s.publish(ctx, messaging.EventVisitDeleted, map[string]string{"visit_id": id})
	return nil
}

func (s *Service) GetVisit(ctx context.Context, id string) (*model.VisitResponse, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := s.response(ctx, v)
	return &resp, nil
}

func (s *Service) GetVisitComplete(ctx context.Context, id string) (*model.VisitComplete, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	complete := toComplete(v, s.now())
	return &complete, nil
}

func (s *Service) ListVisits(ctx context.Context) []model.VisitResponse {
	return s.responses(ctx, s.repo.GetAll(ctx))
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientDNI string) []model.VisitSummary {
	visits := s.repo.GetByPatient(ctx, patientDNI)
	out := make([]model.VisitSummary, 0, len(visits))
	for _, v := range visits {
		out = append(out, toSummary(v, s.doctors.Lookup(ctx, v.AttendingDoctorDNI)))
	}
	return out
}

func (s *Service) ListVisitsByDoctor(ctx context.Context, doctorDNI string) []model.VisitResponse {
	visits := s.repo.GetByDoctor(ctx, doctorDNI)
	doctor := s.doctors.Lookup(ctx, doctorDNI)
	out := make([]model.VisitResponse, 0, len(visits))
	for _, v := range visits {
		out = append(out, toResponse(v, doctor))
	}
	return out
}

func (s *Service) ListVisitsByStatus(ctx context.Context, status model.VisitStatus) ([]model.VisitResponse, error) {
	if !status.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown visit status %q", status), model.ErrInvalidStatus)
	}
	return s.responses(ctx, s.repo.GetByStatus(ctx, status)), nil
}

// AddVitalSigns replaces the admission snapshot with a new measurement.
func (s *Service) AddVitalSigns(ctx context.Context, id string, req model.VitalSignsRequest, actor model.Actor) (*model.VitalSigns, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.BadRequest("invalid vital signs", err)
	}

	var vs model.VitalSigns
	_, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		vs = model.VitalSigns{
			MeasurementID:     s.newID(),
			MeasuredAt:        now,
			HeartRate:         req.HeartRate,
			SystolicPressure:  req.SystolicPressure,
			DiastolicPressure: req.DiastolicPressure,
			Temperature:       req.Temperature,
			OxygenSaturation:  req.OxygenSaturation,
			RespiratoryRate:   req.RespiratoryRate,
			Weight:            req.Weight,
			Height:            req.Height,
			Notes:             req.Notes,
			MeasuredBy:        actor.DNI,
		}
		v.AddVitalSigns(vs, actor.DNI, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &vs, nil
}

func (s *Service) AddDiagnosis(ctx context.Context, id string, d model.Diagnosis, actor model.Actor) (*model.DiagnosisResponse, error) {
	if err := s.validate.Validate(d); err != nil {
		return nil, apperrors.BadRequest("invalid diagnosis", err)
	}
	if _, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		v.AddDiagnosis(d, actor.DNI, now)
		return nil
	}); err != nil {
		return nil, err
	}
	return &model.DiagnosisResponse{
		DiagnosisID: s.newID(),
		DiagnosedAt: s.now(),
		Diagnosis:   d,
		DiagnosedBy: actor.DNI,
	}, nil
}

func (s *Service) AddProcedure(ctx context.Context, id string, p model.Procedure, actor model.Actor) (*model.ProcedureResponse, error) {
	if err := s.validate.Validate(p); err != nil {
		return nil, apperrors.BadRequest("invalid procedure", err)
	}
	if _, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		v.AddProcedure(p, actor.DNI, now)
		return nil
	}); err != nil {
		return nil, err
	}
	return &model.ProcedureResponse{
		ProcedureID: s.newID(),
		PerformedAt: s.now(),
		Procedure:   p,
		PerformedBy: actor.DNI,
	}, nil
}

func (s *Service) AddEvolution(ctx context.Context, id string, e model.Evolution, actor model.Actor) (*model.EvolutionResponse, error) {
	if err := s.validate.Validate(e); err != nil {
		return nil, apperrors.BadRequest("invalid evolution", err)
	}
	if _, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		v.AddEvolution(e, actor.DNI, now)
		return nil
	}); err != nil {
		return nil, err
	}
	return &model.EvolutionResponse{
		EvolutionID: s.newID(),
		RecordedAt:  s.now(),
		Evolution:   e,
		RecordedBy:  actor.DNI,
	}, nil
}

func (s *Service) AddPrescription(ctx context.Context, id string, p model.Prescription, actor model.Actor) (*model.PrescriptionResponse, error) {
	if err := s.validate.Validate(p); err != nil {
		return nil, apperrors.BadRequest("invalid prescription", err)
	}
	if _, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		v.AddPrescription(p, actor.DNI, now)
		return nil
	}); err != nil {
		return nil, err
	}
	return &model.PrescriptionResponse{
		PrescriptionID: s.newID(),
		PrescribedAt:   s.now(),
		Prescription:   p,
		PrescribedBy:   actor.DNI,
	}, nil
}

func (s *Service) AddBloodAnalysis(ctx context.Context, id string, req model.BloodAnalysisRequest, actor model.Actor) (*model.BloodAnalysis, error) {
	a, _, err := s.addBloodAnalysis(ctx, id, req, actor)
	return a, err
}

func (s *Service) AddRadiologyStudy(ctx context.Context, id string, req model.RadiologyStudyRequest, actor model.Actor) (*model.RadiologyStudy, error) {
	st, _, err := s.addRadiologyStudy(ctx, id, req, actor)
	return st, err
}

// AddBloodAnalysisWithPatientSync records the analysis on the visit and then
// copies it to the patient history. The copy is best effort: its failure is
// logged and the visit write stands.
func (s *Service) AddBloodAnalysisWithPatientSync(ctx context.Context, id string, req model.BloodAnalysisRequest, actor model.Actor) (*model.BloodAnalysis, error) {
	a, v, err := s.addBloodAnalysis(ctx, id, req, actor)
	if err != nil {
		return nil, err
	}
	if err := s.history.AppendBloodAnalysis(ctx, v.PatientDNI, *a); err != nil {
		s.log.Error(err, "blood analysis stored on visit but not on patient history",
			"visit_id", v.ID, "patient_dni", v.PatientDNI, "analysis_id", a.AnalysisID)
		return a, nil
	}
	s.log.Info("blood analysis synced to patient history",
		"visit_id", v.ID, "patient_dni", v.PatientDNI, "analysis_id", a.AnalysisID)
	return a, nil
}

func (s *Service) AddRadiologyStudyWithPatientSync(ctx context.Context, id string, req model.RadiologyStudyRequest, actor model.Actor) (*model.RadiologyStudy, error) {
	st, v, err := s.addRadiologyStudy(ctx, id, req, actor)
	if err != nil {
		return nil, err
	}
	if err := s.history.AppendRadiologyStudy(ctx, v.PatientDNI, *st); err != nil {
		s.log.Error(err, "radiology study stored on visit but not on patient history",
			"visit_id", v.ID, "patient_dni", v.PatientDNI, "study_id", st.StudyID)
		return st, nil
	}
	s.log.Info("radiology study synced to patient history",
		"visit_id", v.ID, "patient_dni", v.PatientDNI, "study_id", st.StudyID)
	return st, nil
}

func (s *Service) addBloodAnalysis(ctx context.Context, id string, req model.BloodAnalysisRequest, actor model.Actor) (*model.BloodAnalysis, *model.Visit, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, nil, apperrors.BadRequest("invalid blood analysis", err)
	}

	var added model.BloodAnalysis
	v, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		added = v.AddBloodAnalysis(model.BloodAnalysis{
			AnalysisID:      s.newID(),
			DatePerformed:   now,
			RedBloodCells:   req.RedBloodCells,
			Hemoglobin:      req.Hemoglobin,
			Hematocrit:      req.Hematocrit,
			Platelets:       req.Platelets,
			Lymphocytes:     req.Lymphocytes,
			Glucose:         req.Glucose,
			Cholesterol:     req.Cholesterol,
			Urea:            req.Urea,
			Cocaine:         req.Cocaine,
			Alcohol:         req.Alcohol,
			MDMA:            req.MDMA,
			Fentanyl:        req.Fentanyl,
			Notes:           req.Notes,
			PerformedByName: actor.Name,
			VisitRelatedID:  req.VisitRelatedID,
		}, actor.DNI, now)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &added, v, nil
}

func (s *Service) addRadiologyStudy(ctx context.Context, id string, req model.RadiologyStudyRequest, actor model.Actor) (*model.RadiologyStudy, *model.Visit, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, nil, apperrors.BadRequest("invalid radiology study", err)
	}

	var added model.RadiologyStudy
	v, err := s.mutate(ctx, id, actor, func(v *model.Visit, now time.Time) error {
		added = v.AddRadiologyStudy(model.RadiologyStudy{
			StudyID:         s.newID(),
			DatePerformed:   now,
			StudyType:       req.StudyType,
			BodyPart:        req.BodyPart,
			Findings:        req.Findings,
			ImageURL:        req.ImageURL,
			PerformedByName: actor.Name,
			VisitRelatedID:  req.VisitRelatedID,
		}, actor.DNI, now)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &added, v, nil
}

func (s *Service) load(ctx context.Context, id string) (*model.Visit, error) {
	v := s.repo.GetByID(ctx, id)
	if v == nil {
		return nil, apperrors.NotFound("visit", nil)
	}
	return v, nil
}

// mutate loads the visit, applies fn and writes it back.
func (s *Service) mutate(ctx context.Context, id string, actor model.Actor, fn func(v *model.Visit, now time.Time) error) (*model.Visit, error) {
	v, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := fn(v, now); err != nil {
		return nil, domainError(err)
	}
	v.Touch(actor.DNI, now)

	if !s.repo.Update(ctx, v) {
		return nil, apperrors.Internal(fmt.Errorf("update visit %s", id))
	}
	return v, nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		metrics.RecordEvent(eventType, "error")
		s.log.Error(err, "failed to publish event", "event_type", eventType)
		return
	}
	metrics.RecordEvent(eventType, "accepted")
}

func (s *Service) response(ctx context.Context, v *model.Visit) model.VisitResponse {
	return toResponse(v, s.doctors.Lookup(ctx, v.AttendingDoctorDNI))
}

func (s *Service) responses(ctx context.Context, visits []*model.Visit) []model.VisitResponse {
	out := make([]model.VisitResponse, 0, len(visits))
	for _, v := range visits {
		out = append(out, s.response(ctx, v))
	}
	return out
}

func domainError(err error) error {
	switch {
	case errors.Is(err, model.ErrVisitClosed):
		return apperrors.Conflict("visit is already discharged", err)
	case errors.Is(err, model.ErrTerminalStatus), errors.Is(err, model.ErrInvalidStatus):
		return apperrors.BadRequest(err.Error(), err)
	}
	return apperrors.Internal(err)
}
