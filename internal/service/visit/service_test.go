package visit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	"github.com/sigmarp/medical-api/internal/repository/document"
	"github.com/sigmarp/medical-api/pkg/docstore/memory"
	apperrors "github.com/sigmarp/medical-api/pkg/errors"
	"github.com/sigmarp/medical-api/pkg/logger"
)

var t0 = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

var doctorActor = model.Actor{DNI: "20999888", Name: "Dra. Paz", Role: model.RoleDoctor}

type doctorsFunc func(ctx context.Context, dni string) *model.Doctor

func (f doctorsFunc) Lookup(ctx context.Context, dni string) *model.Doctor { return f(ctx, dni) }

type mockHistory struct {
	appendBloodFn     func(ctx context.Context, dni string, a model.BloodAnalysis) error
	appendRadiologyFn func(ctx context.Context, dni string, s model.RadiologyStudy) error
}

func (m *mockHistory) Register(context.Context, string) error { return nil }
func (m *mockHistory) Get(context.Context, string) (*model.PatientHistory, error) {
	return nil, nil
}
func (m *mockHistory) AppendBloodAnalysis(ctx context.Context, dni string, a model.BloodAnalysis) error {
	return m.appendBloodFn(ctx, dni, a)
}
func (m *mockHistory) AppendRadiologyStudy(ctx context.Context, dni string, s model.RadiologyStudy) error {
	return m.appendRadiologyFn(ctx, dni, s)
}

type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	p.events = append(p.events, eventType)
	return nil
}

type fixture struct {
	svc     *Service
	repo    repository.VisitRepository
	history *mockHistory
	events  *recordingPublisher
	clock   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := t0
	seq := 0
	f := &fixture{
		repo: document.NewVisitRepository(memory.New(), logger.Nop()),
		history: &mockHistory{
			appendBloodFn:     func(context.Context, string, model.BloodAnalysis) error { return nil },
			appendRadiologyFn: func(context.Context, string, model.RadiologyStudy) error { return nil },
		},
		events: &recordingPublisher{},
		clock:  &clock,
	}
	doctors := doctorsFunc(func(_ context.Context, dni string) *model.Doctor {
		if dni == doctorActor.DNI {
			return &model.Doctor{DNI: dni, Name: "Dra. Paz", Specialty: "Urgencias"}
		}
		return nil
	})
	f.svc = NewService(f.repo, doctors, f.history, f.events, logger.Nop(),
		WithClock(func() time.Time { return *f.clock }),
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("id-%d", seq) }),
	)
	return f
}

func intPtr(i int) *int                                { return &i }
func strPtr(s string) *string                          { return &s }
func floatPtr(f float64) *float64                      { return &f }
func statusPtr(s model.VisitStatus) *model.VisitStatus { return &s }

func createRequest() model.CreateVisitRequest {
	return model.CreateVisitRequest{
		PatientDNI:     "30111222",
		Reason:         "Caída de moto",
		AttentionPlace: model.AttentionPlaceAmbulance,
		Location:       "Sandy Shores",
		Triage:         model.TriageYellow,
	}
}

func (f *fixture) create(t *testing.T) *model.VisitResponse {
	t.Helper()
	resp, err := f.svc.CreateVisit(context.Background(), createRequest(), doctorActor)
	require.NoError(t, err)
	return resp
}

func TestCreateVisit(t *testing.T) {
	f := newFixture(t)
	req := createRequest()
	req.AdmissionHeartRate = intPtr(110)
	req.AdmissionBloodPressure = strPtr("120/80")

	resp, err := f.svc.CreateVisit(context.Background(), req, doctorActor)
	require.NoError(t, err)
	assert.Equal(t, "id-1", resp.VisitID)
	assert.Equal(t, model.VisitStatusAdmission, resp.VisitStatus)
	assert.Equal(t, "Dra. Paz", resp.DoctorName)
	assert.Equal(t, "Urgencias", resp.DoctorSpecialty)
	assert.Equal(t, t0, resp.AdmissionDate)
	assert.Nil(t, resp.DischargeDate)
	assert.Equal(t, []string{"visit.created"}, f.events.events)

	stored := f.repo.GetByID(context.Background(), resp.VisitID)
	require.NotNil(t, stored)
	assert.Equal(t, model.DefaultPriority, stored.PriorityLevel)
	assert.Equal(t, doctorActor.DNI, stored.CreatedBy)
	assert.Equal(t, doctorActor.DNI, stored.AttendingDoctorDNI)
	require.NotNil(t, stored.AdmissionVitalSigns)
	assert.Equal(t, 110, *stored.AdmissionVitalSigns.HeartRate)
	assert.Equal(t, "120/80", *stored.AdmissionVitalSigns.SystolicPressure)
	assert.Nil(t, stored.AdmissionVitalSigns.Temperature)
	assert.Equal(t, doctorActor.DNI, stored.AdmissionVitalSigns.MeasuredBy)
}

func TestCreateVisit_NoVitalsNoSnapshot(t *testing.T) {
	f := newFixture(t)
	resp := f.create(t)

	stored := f.repo.GetByID(context.Background(), resp.VisitID)
	require.NotNil(t, stored)
	assert.Nil(t, stored.AdmissionVitalSigns)
}

func TestCreateVisit_Invalid(t *testing.T) {
	f := newFixture(t)
	req := createRequest()
	req.PriorityLevel = intPtr(9)
	req.AttentionPlace = "rooftop"

	_, err := f.svc.CreateVisit(context.Background(), req, doctorActor)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestCreateVisit_RepositoryFailure(t *testing.T) {
	svc := NewService(failingRepo{}, doctorsFunc(func(context.Context, string) *model.Doctor { return nil }),
		&mockHistory{}, nil, logger.Nop())

	_, err := svc.CreateVisit(context.Background(), createRequest(), doctorActor)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInternal))

	_, err = svc.GetVisit(context.Background(), "x")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateVisit_TranslatesFields(t *testing.T) {
	f := newFixture(t)
	req := createRequest()
	req.AdmissionHeartRate = intPtr(90)
	created, err := f.svc.CreateVisit(context.Background(), req, doctorActor)
	require.NoError(t, err)

	nurse := model.Actor{DNI: "27000111", Name: "Enf. Gómez", Role: model.RoleDoctor}
	resp, err := f.svc.UpdateVisit(context.Background(), created.VisitID, model.UpdateVisitRequest{
		Diagnosis:              strPtr("Fractura de tibia"),
		Medication:             strPtr("Ibuprofeno 400mg"),
		Evolution:              strPtr("Estable\nMejorando"),
		AdditionalObservations: strPtr("Familia avisada"),
		Notes:                  strPtr("Control cada 4h"),
		AdmissionTemperature:   floatPtr(37.2),
		PriorityLevel:          intPtr(2),
	}, nurse)
	require.NoError(t, err)

	assert.Equal(t, "Fractura de tibia", resp.Diagnosis)
	assert.Equal(t, "Ibuprofeno 400mg", resp.Medication)
	assert.Equal(t, "Mejorando", resp.Evolution)
	assert.Equal(t, "Familia avisada", resp.AdditionalObservations)
	assert.Equal(t, "Control cada 4h", resp.Notes)

	stored := f.repo.GetByID(context.Background(), created.VisitID)
	require.NotNil(t, stored)
	assert.Equal(t, "Fractura de tibia", stored.Diagnoses)
	assert.Equal(t, "Ibuprofeno 400mg", stored.Prescriptions)
	assert.Equal(t, "Estable\nMejorando", stored.Evolutions)
	assert.Equal(t, "Familia avisada", stored.Evolution)
	assert.Equal(t, "Control cada 4h", stored.NursingNotes)
	assert.Equal(t, 2, stored.PriorityLevel)
	assert.Equal(t, "Caída de moto", stored.Reason)
	assert.Equal(t, nurse.DNI, stored.LastUpdatedBy)
	require.NotNil(t, stored.AdmissionVitalSigns)
	assert.Equal(t, 90, *stored.AdmissionVitalSigns.HeartRate, "merged, not replaced")
	assert.Equal(t, 37.2, *stored.AdmissionVitalSigns.Temperature)
}

func TestUpdateVisit_EmptyLogValuesAreIgnored(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	_, err := f.svc.UpdateVisit(context.Background(), created.VisitID, model.UpdateVisitRequest{
		Diagnosis:  strPtr("Esguince"),
		Procedures: strPtr("Vendaje"),
		Notes:      strPtr("Reposo"),
		Treatment:  strPtr("Frío local"),
	}, doctorActor)
	require.NoError(t, err)

	_, err = f.svc.UpdateVisit(context.Background(), created.VisitID, model.UpdateVisitRequest{
		Diagnosis:  strPtr(""),
		Procedures: strPtr(""),
		Notes:      strPtr(""),
		Treatment:  strPtr(""),
	}, doctorActor)
	require.NoError(t, err)

	stored := f.repo.GetByID(context.Background(), created.VisitID)
	require.NotNil(t, stored)
	assert.Equal(t, "Esguince", stored.Diagnoses)
	assert.Equal(t, "Vendaje", stored.Procedures)
	assert.Equal(t, "Reposo", stored.NursingNotes)
	assert.Empty(t, stored.Treatment)
}

func TestUpdateVisit_CreatesVitalsSnapshot(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	_, err := f.svc.UpdateVisit(context.Background(), created.VisitID, model.UpdateVisitRequest{
		AdmissionOxygenSaturation: intPtr(95),
	}, doctorActor)
	require.NoError(t, err)

	stored := f.repo.GetByID(context.Background(), created.VisitID)
	require.NotNil(t, stored.AdmissionVitalSigns)
	assert.Equal(t, 95, *stored.AdmissionVitalSigns.OxygenSaturation)
	assert.Equal(t, doctorActor.DNI, stored.AdmissionVitalSigns.MeasuredBy)
}

func TestUpdateVisit_Status(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	ctx := context.Background()

	resp, err := f.svc.UpdateVisit(ctx, created.VisitID, model.UpdateVisitRequest{
		VisitStatus: statusPtr(model.VisitStatusObservation),
	}, doctorActor)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusObservation, resp.VisitStatus)

	_, err = f.svc.UpdateVisit(ctx, created.VisitID, model.UpdateVisitRequest{
		VisitStatus: statusPtr(model.VisitStatusDischarge),
	}, doctorActor)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))

	stored := f.repo.GetByID(ctx, created.VisitID)
	assert.False(t, stored.IsCompleted)
	assert.Nil(t, stored.DischargeDate)
}

func TestUpdateVisit_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateVisit(context.Background(), "ghost", model.UpdateVisitRequest{}, doctorActor)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDischargeVisit(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	ctx := context.Background()

	*f.clock = t0.Add(90 * time.Minute)
	resp, err := f.svc.DischargeVisit(ctx, created.VisitID, doctorActor)
	require.NoError(t, err)
	assert.Equal(t, model.VisitStatusDischarge, resp.VisitStatus)
	require.NotNil(t, resp.DischargeDate)
	assert.Equal(t, t0.Add(90*time.Minute), *resp.DischargeDate)

	complete, err := f.svc.GetVisitComplete(ctx, created.VisitID)
	require.NoError(t, err)
	assert.True(t, complete.IsCompleted)
	assert.Equal(t, int64(1), complete.LengthOfStayHours)

	_, err = f.svc.DischargeVisit(ctx, created.VisitID, doctorActor)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))

	_, err = f.svc.UpdateVisit(ctx, created.VisitID, model.UpdateVisitRequest{
		VisitStatus: statusPtr(model.VisitStatusInProgress),
	}, doctorActor)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))

	assert.Equal(t, []string{"visit.created", "visit.discharged"}, f.events.events)
}

func TestGetVisitComplete_OpenVisitLengthOfStay(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	*f.clock = t0.Add(3*time.Hour + 59*time.Minute)
	complete, err := f.svc.GetVisitComplete(context.Background(), created.VisitID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), complete.LengthOfStayHours)
	assert.False(t, complete.IsCompleted)
	assert.NotNil(t, complete.BloodAnalyses)
	assert.NotNil(t, complete.QualityIndicators)
}

func TestClinicalLogsAreAppendOnly(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	ctx := context.Background()

	first, err := f.svc.AddDiagnosis(ctx, created.VisitID, model.Diagnosis{PrimaryDiagnosis: "Contusión"}, doctorActor)
	require.NoError(t, err)
	second, err := f.svc.AddDiagnosis(ctx, created.VisitID, model.Diagnosis{PrimaryDiagnosis: "Fractura", Severity: "moderada"}, doctorActor)
	require.NoError(t, err)
	assert.NotEqual(t, first.DiagnosisID, second.DiagnosisID)
	assert.Equal(t, doctorActor.DNI, second.DiagnosedBy)

	_, err = f.svc.AddPrescription(ctx, created.VisitID, model.Prescription{
		MedicationName: "Paracetamol", Dosage: "1g", Frequency: "8h", Duration: "3 días", Route: "oral",
	}, doctorActor)
	require.NoError(t, err)
	_, err = f.svc.AddProcedure(ctx, created.VisitID, model.Procedure{ProcedureType: "Yeso", Description: "Pierna derecha"}, doctorActor)
	require.NoError(t, err)
	_, err = f.svc.AddEvolution(ctx, created.VisitID, model.Evolution{ClinicalStatus: model.PatientStatusStable}, doctorActor)
	require.NoError(t, err)

	stored := f.repo.GetByID(ctx, created.VisitID)
	require.NotNil(t, stored)
	assert.Equal(t, "Diagnóstico: Contusión\nDiagnóstico: Fractura - Severidad: moderada", stored.Diagnoses)
	assert.Equal(t, "Medicamento: Paracetamol - Dosis: 1g - Frecuencia: 8h - Duración: 3 días - Vía: oral", stored.Prescriptions)
	assert.Equal(t, "Procedimiento: Yeso - Pierna derecha", stored.Procedures)
	assert.Equal(t, "Estado clínico: stable", stored.Evolutions)

	_, err = f.svc.AddDiagnosis(ctx, created.VisitID, model.Diagnosis{}, doctorActor)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
}

func TestAddVitalSigns_ReplacesSnapshot(t *testing.T) {
	f := newFixture(t)
	req := createRequest()
	req.AdmissionHeartRate = intPtr(130)
	created, err := f.svc.CreateVisit(context.Background(), req, doctorActor)
	require.NoError(t, err)

	vs, err := f.svc.AddVitalSigns(context.Background(), created.VisitID, model.VitalSignsRequest{
		Temperature: floatPtr(38.5),
		Notes:       "Febril",
	}, doctorActor)
	require.NoError(t, err)
	assert.NotEmpty(t, vs.MeasurementID)

	stored := f.repo.GetByID(context.Background(), created.VisitID)
	require.NotNil(t, stored.AdmissionVitalSigns)
	assert.Nil(t, stored.AdmissionVitalSigns.HeartRate)
	assert.Equal(t, 38.5, *stored.AdmissionVitalSigns.Temperature)
	assert.Equal(t, "Febril", stored.AdmissionVitalSigns.Notes)
}

func TestAddBloodAnalysis_ForcesBackReference(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	a, err := f.svc.AddBloodAnalysis(context.Background(), created.VisitID, model.BloodAnalysisRequest{
		Hemoglobin:     floatPtr(13.1),
		VisitRelatedID: "someone-else",
	}, doctorActor)
	require.NoError(t, err)
	assert.Equal(t, created.VisitID, a.VisitRelatedID)
	assert.Equal(t, doctorActor.DNI, a.PerformedByDNI)
	assert.Equal(t, doctorActor.Name, a.PerformedByName)

	st, err := f.svc.AddRadiologyStudy(context.Background(), created.VisitID, model.RadiologyStudyRequest{
		StudyType: "RX", BodyPart: "Tórax", Findings: "Normal", VisitRelatedID: "other",
	}, doctorActor)
	require.NoError(t, err)
	assert.Equal(t, created.VisitID, st.VisitRelatedID)

	stored := f.repo.GetByID(context.Background(), created.VisitID)
	require.Len(t, stored.BloodAnalyses, 1)
	assert.Equal(t, created.VisitID, stored.BloodAnalyses[0].VisitRelatedID)
	require.Len(t, stored.RadiologyStudies, 1)
	assert.Equal(t, created.VisitID, stored.RadiologyStudies[0].VisitRelatedID)
}

func TestPatientSync_BestEffort(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	ctx := context.Background()

	var syncedTo string
	f.history.appendBloodFn = func(_ context.Context, dni string, a model.BloodAnalysis) error {
		syncedTo = dni
		assert.Equal(t, created.VisitID, a.VisitRelatedID)
		return nil
	}
	f.history.appendRadiologyFn = func(context.Context, string, model.RadiologyStudy) error {
		return errors.New("patient not registered")
	}

	a, err := f.svc.AddBloodAnalysisWithPatientSync(ctx, created.VisitID, model.BloodAnalysisRequest{Glucose: floatPtr(90)}, doctorActor)
	require.NoError(t, err)
	assert.NotEmpty(t, a.AnalysisID)
	assert.Equal(t, "30111222", syncedTo)

	st, err := f.svc.AddRadiologyStudyWithPatientSync(ctx, created.VisitID, model.RadiologyStudyRequest{
		StudyType: "TAC", BodyPart: "Cráneo", Findings: "Sin lesiones",
	}, doctorActor)
	require.NoError(t, err, "history failure must not fail the visit write")
	require.NotNil(t, st)

	stored := f.repo.GetByID(ctx, created.VisitID)
	assert.Len(t, stored.RadiologyStudies, 1)
}

func TestPatientSync_VisitMissingSkipsHistory(t *testing.T) {
	f := newFixture(t)
	called := false
	f.history.appendBloodFn = func(context.Context, string, model.BloodAnalysis) error {
		called = true
		return nil
	}

	_, err := f.svc.AddBloodAnalysisWithPatientSync(context.Background(), "ghost", model.BloodAnalysisRequest{}, doctorActor)
	assert.True(t, apperrors.IsNotFound(err))
	assert.False(t, called)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t)
	*f.clock = t0.Add(time.Hour)
	other := model.Actor{DNI: "11111111", Name: "Dr. Sin Perfil", Role: model.RoleDoctor}
	second, err := f.svc.CreateVisit(ctx, createRequest(), other)
	require.NoError(t, err)

	byPatient := f.svc.ListVisitsByPatient(ctx, "30111222")
	require.Len(t, byPatient, 2)
	assert.Equal(t, second.VisitID, byPatient[0].VisitID)
	assert.Equal(t, "Unknown", byPatient[0].DoctorName)
	assert.Equal(t, "Dra. Paz", byPatient[1].DoctorName)

	byDoctor := f.svc.ListVisitsByDoctor(ctx, doctorActor.DNI)
	require.Len(t, byDoctor, 1)
	assert.Equal(t, first.VisitID, byDoctor[0].VisitID)

	admitted, err := f.svc.ListVisitsByStatus(ctx, model.VisitStatusAdmission)
	require.NoError(t, err)
	assert.Len(t, admitted, 2)

	_, err = f.svc.ListVisitsByStatus(ctx, "archived")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))

	assert.Len(t, f.svc.ListVisits(ctx), 2)
	assert.Empty(t, f.svc.ListVisitsByPatient(ctx, "nobody"))
}

func TestDeleteVisit(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteVisit(ctx, created.VisitID))
	require.NoError(t, f.svc.DeleteVisit(ctx, created.VisitID))
	_, err := f.svc.GetVisit(ctx, created.VisitID)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, f.events.events, "visit.deleted")
}

// failingRepo reports every write as failed and finds nothing.
type failingRepo struct{}

func (failingRepo) GetByID(context.Context, string) *model.Visit                  { return nil }
func (failingRepo) Create(context.Context, *model.Visit) bool                     { return false }
func (failingRepo) Update(context.Context, *model.Visit) bool                     { return false }
func (failingRepo) Delete(context.Context, string) bool                           { return false }
func (failingRepo) GetByPatient(context.Context, string) []*model.Visit           { return []*model.Visit{} }
func (failingRepo) GetByDoctor(context.Context, string) []*model.Visit            { return []*model.Visit{} }
func (failingRepo) GetByStatus(context.Context, model.VisitStatus) []*model.Visit { return []*model.Visit{} }
func (failingRepo) GetAll(context.Context) []*model.Visit                         { return []*model.Visit{} }
