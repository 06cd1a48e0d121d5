package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func newOpenVisit() *Visit {
	return &Visit{
		ID:            "visit-1",
		PatientDNI:    "11111111",
		Status:        VisitStatusAdmission,
		PriorityLevel: DefaultPriority,
		AdmissionDate: t0,
		CreatedAt:     t0,
		UpdatedAt:     t0,
	}
}

func TestVisit_AppendLogs(t *testing.T) {
	v := newOpenVisit()

	v.AddDiagnosis(Diagnosis{PrimaryDiagnosis: "Fractura de radio", ICD10Code: "S52.5", Severity: "moderada"}, "doc-1", t0.Add(time.Minute))
	assert.Equal(t, "Diagnóstico: Fractura de radio (CIE-10: S52.5) - Severidad: moderada", v.Diagnoses)

	prior := v.Diagnoses
	v.AddDiagnosis(Diagnosis{PrimaryDiagnosis: "Contusión", SecondaryDiagnoses: []string{"Erosión", "Hematoma"}}, "doc-2", t0.Add(2*time.Minute))
	assert.Equal(t, prior+"\nDiagnóstico: Contusión", v.Diagnoses, "secondary diagnoses are not rendered")
	assert.Equal(t, "doc-2", v.LastUpdatedBy)
	assert.Equal(t, t0.Add(2*time.Minute), v.UpdatedAt)

	minutes := 45
	v.AddProcedure(Procedure{ProcedureType: "Sutura", Description: "Cierre de herida", DurationMinutes: &minutes, Outcome: "ok"}, "", t0)
	assert.Equal(t, "Procedimiento: Sutura - Cierre de herida (Duración: 45 min) - Resultado: ok", v.Procedures)
	assert.Equal(t, "doc-2", v.LastUpdatedBy, "empty actor keeps the previous one")

	v.AddEvolution(Evolution{ClinicalStatus: PatientStatusStable, Symptoms: []string{"dolor"}, Plan: "reposo"}, "doc-1", t0)
	v.AddEvolution(Evolution{ClinicalStatus: PatientStatusImproving}, "doc-1", t0)
	assert.Equal(t, "Estado clínico: stable - Síntomas: dolor - Plan: reposo\nEstado clínico: improving", v.Evolutions)
	assert.Equal(t, "Estado clínico: improving", v.LatestEvolution())

	v.AddPrescription(Prescription{MedicationName: "Ibuprofeno", Dosage: "400mg", Frequency: "8h", Duration: "5 días", Route: "oral", Instructions: "con comida"}, "doc-1", t0)
	assert.Equal(t, "Medicamento: Ibuprofeno - Dosis: 400mg - Frecuencia: 8h - Duración: 5 días - Vía: oral - Instrucciones: con comida", v.Prescriptions)

	assert.Equal(t, "Diagnóstico: Fractura de radio (CIE-10: S52.5) - Severidad: moderada", v.PrimaryDiagnosis())
}

func TestVisit_EmptyLogs(t *testing.T) {
	v := newOpenVisit()
	assert.Empty(t, v.PrimaryDiagnosis())
	assert.Empty(t, v.LatestEvolution())
	assert.Nil(t, v.LatestBloodAnalysis())
	assert.Nil(t, v.LatestRadiologyStudy())
}

func TestVisit_SubRecordsAreBoundToVisit(t *testing.T) {
	v := newOpenVisit()

	a := v.AddBloodAnalysis(BloodAnalysis{AnalysisID: "a1", DatePerformed: t0, VisitRelatedID: "someone-else"}, "doc-1", t0)
	s := v.AddRadiologyStudy(RadiologyStudy{StudyID: "s1", DatePerformed: t0, VisitRelatedID: "other"}, "doc-1", t0)

	assert.Equal(t, v.ID, a.VisitRelatedID)
	assert.Equal(t, v.ID, s.VisitRelatedID)
	assert.Equal(t, "doc-1", a.PerformedByDNI)
	require.Len(t, v.BloodAnalyses, 1)
	require.Len(t, v.RadiologyStudies, 1)
	assert.Equal(t, v.ID, v.BloodAnalyses[0].VisitRelatedID)
	assert.Equal(t, v.ID, v.RadiologyStudies[0].VisitRelatedID)
}

func TestVisit_LatestSubRecords(t *testing.T) {
	v := newOpenVisit()
	v.AddBloodAnalysis(BloodAnalysis{AnalysisID: "new", DatePerformed: t0.Add(time.Hour)}, "", t0)
	v.AddBloodAnalysis(BloodAnalysis{AnalysisID: "old", DatePerformed: t0}, "", t0)
	v.AddRadiologyStudy(RadiologyStudy{StudyID: "old", DatePerformed: t0}, "", t0)
	v.AddRadiologyStudy(RadiologyStudy{StudyID: "new", DatePerformed: t0.Add(time.Hour)}, "", t0)

	assert.Equal(t, "new", v.LatestBloodAnalysis().AnalysisID)
	assert.Equal(t, "new", v.LatestRadiologyStudy().StudyID)
}

func TestVisit_Discharge(t *testing.T) {
	v := newOpenVisit()
	at := t0.Add(90 * time.Minute)

	require.NoError(t, v.Discharge("doc-1", at))
	assert.Equal(t, VisitStatusDischarge, v.Status)
	assert.True(t, v.IsCompleted)
	require.NotNil(t, v.DischargeDate)
	assert.Equal(t, at, *v.DischargeDate)
	assert.Equal(t, "doc-1", v.LastUpdatedBy)

	assert.ErrorIs(t, v.Discharge("doc-1", at.Add(time.Hour)), ErrVisitClosed)
	assert.Equal(t, at, *v.DischargeDate)
}

func TestVisit_SetStatus(t *testing.T) {
	v := newOpenVisit()

	assert.NoError(t, v.SetStatus(VisitStatusObservation))
	assert.Equal(t, VisitStatusObservation, v.Status)
	assert.ErrorIs(t, v.SetStatus(VisitStatusDischarge), ErrTerminalStatus)
	assert.ErrorIs(t, v.SetStatus("unknown"), ErrInvalidStatus)

	require.NoError(t, v.Discharge("doc", t0))
	assert.ErrorIs(t, v.SetStatus(VisitStatusInProgress), ErrVisitClosed)
	assert.Equal(t, VisitStatusDischarge, v.Status)
}

func TestVisit_LengthOfStay(t *testing.T) {
	v := newOpenVisit()
	assert.Equal(t, int64(3), v.LengthOfStay(t0.Add(3*time.Hour)))
	assert.Equal(t, int64(0), v.LengthOfStay(t0.Add(59*time.Minute)))

	require.NoError(t, v.Discharge("doc", t0.Add(90*time.Minute)))
	assert.Equal(t, int64(1), v.LengthOfStay(t0.Add(48*time.Hour)))
}

func TestVisit_AddVitalSignsReplacesSnapshot(t *testing.T) {
	v := newOpenVisit()
	hr := 80
	v.AddVitalSigns(VitalSigns{MeasurementID: "m1", HeartRate: &hr}, "doc-1", t0)
	v.AddVitalSigns(VitalSigns{MeasurementID: "m2"}, "doc-2", t0)

	require.NotNil(t, v.AdmissionVitalSigns)
	assert.Equal(t, "m2", v.AdmissionVitalSigns.MeasurementID)
	assert.Nil(t, v.AdmissionVitalSigns.HeartRate)
	assert.Equal(t, "doc-2", v.AdmissionVitalSigns.MeasuredBy)
}

func TestActor_CanRecruit(t *testing.T) {
	recruiterDoctor := Actor{DNI: "1", Role: RoleDoctor, Roles: []string{RoleRecruiter}}
	recruiterPolice := Actor{DNI: "2", Role: RolePolice, Roles: []string{RoleRecruiter}}
	plainDoctor := Actor{DNI: "3", Role: RoleDoctor}
	admin := Actor{DNI: "4", Role: RoleAdmin}

	assert.True(t, recruiterDoctor.CanRecruit(ProfessionEMS))
	assert.False(t, recruiterDoctor.CanRecruit(ProfessionPolice))
	assert.True(t, recruiterPolice.CanRecruit(ProfessionPolice))
	assert.False(t, plainDoctor.CanRecruit(ProfessionEMS))
	assert.True(t, admin.CanRecruit(ProfessionPolice))
}

func TestParseProfession(t *testing.T) {
	p, ok := ParseProfession("ems")
	assert.True(t, ok)
	assert.Equal(t, ProfessionEMS, p)

	_, ok = ParseProfession("firefighter")
	assert.False(t, ok)
}
