package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

type VisitStatus string

const (
	VisitStatusAdmission   VisitStatus = "admission"
	VisitStatusInProgress  VisitStatus = "in_progress"
	VisitStatusObservation VisitStatus = "observation"
	VisitStatusDischarge   VisitStatus = "discharge"
)

func (s VisitStatus) Valid() bool {
	switch s {
	case VisitStatusAdmission, VisitStatusInProgress, VisitStatusObservation, VisitStatusDischarge:
		return true
	}
	return false
}

// IsTerminal reports whether the status closes the visit.
func (s VisitStatus) IsTerminal() bool {
	return s == VisitStatusDischarge
}

type Triage string

const (
	TriageRed    Triage = "red"
	TriageOrange Triage = "orange"
	TriageYellow Triage = "yellow"
	TriageGreen  Triage = "green"
	TriageBlue   Triage = "blue"
)

type AttentionPlace string

const (
	AttentionPlaceHospital  AttentionPlace = "hospital"
	AttentionPlaceAmbulance AttentionPlace = "ambulance"
	AttentionPlaceField     AttentionPlace = "field"
	AttentionPlaceClinic    AttentionPlace = "clinic"
)

type PatientStatus string

const (
	PatientStatusStable    PatientStatus = "stable"
	PatientStatusImproving PatientStatus = "improving"
	PatientStatusWorsening PatientStatus = "worsening"
	PatientStatusCritical  PatientStatus = "critical"
	PatientStatusDeceased  PatientStatus = "deceased"
)

const (
	DefaultPriority = 3
	MinPriority     = 1
	MaxPriority     = 5
)

var (
	ErrVisitClosed    = errors.New("visit is already discharged")
	ErrTerminalStatus = errors.New("discharge status can only be set by discharging the visit")
	ErrInvalidStatus  = errors.New("invalid visit status")
)

// Visit is one patient encounter together with the records it owns.
type Visit struct {
	ID                 string
	PatientDNI         string
	Reason             string
	AttentionPlace     AttentionPlace
	AttentionDetails   string
	Location           string
	Status             VisitStatus
	Triage             Triage
	PriorityLevel      int
	AttendingDoctorDNI string

	AdmissionVitalSigns *VitalSigns

	// Clinical logs, one rendered entry per line.
	Diagnoses     string
	Procedures    string
	Evolutions    string
	Prescriptions string

	Treatment    string
	Evolution    string
	NursingNotes string

	BloodAnalyses    []BloodAnalysis
	RadiologyStudies []RadiologyStudy

	CreatedAt     time.Time
	UpdatedAt     time.Time
	AdmissionDate time.Time
	DischargeDate *time.Time
	CreatedBy     string
	LastUpdatedBy string

	IsCompleted       bool
	QualityIndicators map[string]interface{}

	Version int64
}

// Touch stamps the last modification. An empty actor keeps the previous one.
func (v *Visit) Touch(by string, at time.Time) {
	v.UpdatedAt = at
	if by != "" {
		v.LastUpdatedBy = by
	}
}

// AddVitalSigns replaces the admission snapshot.
func (v *Visit) AddVitalSigns(vs VitalSigns, by string, at time.Time) {
	if by != "" {
		vs.MeasuredBy = by
	}
	v.AdmissionVitalSigns = &vs
	v.Touch(by, at)
}

func (v *Visit) AddDiagnosis(d Diagnosis, by string, at time.Time) {
	v.Diagnoses = appendLine(v.Diagnoses, d.Line())
	v.Touch(by, at)
}

func (v *Visit) AddProcedure(p Procedure, by string, at time.Time) {
	v.Procedures = appendLine(v.Procedures, p.Line())
	v.Touch(by, at)
}

func (v *Visit) AddEvolution(e Evolution, by string, at time.Time) {
	v.Evolutions = appendLine(v.Evolutions, e.Line())
	v.Touch(by, at)
}

func (v *Visit) AddPrescription(p Prescription, by string, at time.Time) {
	v.Prescriptions = appendLine(v.Prescriptions, p.Line())
	v.Touch(by, at)
}

// AddBloodAnalysis appends the analysis and binds it to this visit.
func (v *Visit) AddBloodAnalysis(a BloodAnalysis, by string, at time.Time) BloodAnalysis {
	if by != "" {
		a.PerformedByDNI = by
	}
	a.VisitRelatedID = v.ID
	v.BloodAnalyses = append(v.BloodAnalyses, a)
	v.Touch(by, at)
	return a
}

// AddRadiologyStudy appends the study and binds it to this visit.
func (v *Visit) AddRadiologyStudy(s RadiologyStudy, by string, at time.Time) RadiologyStudy {
	if by != "" {
		s.PerformedByDNI = by
	}
	s.VisitRelatedID = v.ID
	v.RadiologyStudies = append(v.RadiologyStudies, s)
	v.Touch(by, at)
	return s
}

// SetStatus moves an open visit between non-terminal states.
func (v *Visit) SetStatus(status VisitStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if status.IsTerminal() {
		return ErrTerminalStatus
	}
	if v.IsCompleted {
		return ErrVisitClosed
	}
	v.Status = status
	return nil
}

// Discharge closes the visit. A closed visit cannot be discharged again.
func (v *Visit) Discharge(by string, at time.Time) error {
	if v.IsCompleted {
		return ErrVisitClosed
	}
	v.Status = VisitStatusDischarge
	discharged := at
	v.DischargeDate = &discharged
	v.IsCompleted = true
	v.Touch(by, at)
	return nil
}

// PrimaryDiagnosis is the first diagnosis line, or "" when none was recorded.
func (v *Visit) PrimaryDiagnosis() string {
	if v.Diagnoses == "" {
		return ""
	}
	first, _, _ := strings.Cut(v.Diagnoses, "\n")
	return first
}

// LatestEvolution is the last evolution line, or "" when none was recorded.
func (v *Visit) LatestEvolution() string {
	if v.Evolutions == "" {
		return ""
	}
	return v.Evolutions[strings.LastIndex(v.Evolutions, "\n")+1:]
}

func (v *Visit) LatestBloodAnalysis() *BloodAnalysis {
	var latest *BloodAnalysis
	for i := range v.BloodAnalyses {
		if latest == nil || v.BloodAnalyses[i].DatePerformed.After(latest.DatePerformed) {
			latest = &v.BloodAnalyses[i]
		}
	}
	return latest
}

func (v *Visit) LatestRadiologyStudy() *RadiologyStudy {
	var latest *RadiologyStudy
	for i := range v.RadiologyStudies {
		if latest == nil || v.RadiologyStudies[i].DatePerformed.After(latest.DatePerformed) {
			latest = &v.RadiologyStudies[i]
		}
	}
	return latest
}

// LengthOfStay returns whole hours between admission and discharge, or
// between admission and now for an open visit. Partial hours are dropped.
func (v *Visit) LengthOfStay(now time.Time) int64 {
	end := now
	if v.DischargeDate != nil {
		end = *v.DischargeDate
	}
	return int64(end.Sub(v.AdmissionDate) / time.Hour)
}

func appendLine(log, line string) string {
	if log == "" {
		return line
	}
	return log + "\n" + line
}

// VitalSigns is a single measurement snapshot.
type VitalSigns struct {
	MeasurementID     string    `json:"measurement_id"`
	MeasuredAt        time.Time `json:"measured_at"`
	HeartRate         *int      `json:"heart_rate"`
	SystolicPressure  *string   `json:"systolic_pressure"`
	DiastolicPressure *string   `json:"diastolic_pressure"`
	Temperature       *float64  `json:"temperature"`
	OxygenSaturation  *int      `json:"oxygen_saturation"`
	RespiratoryRate   *string   `json:"respiratory_rate"`
	Weight            *string   `json:"weight"`
	Height            *string   `json:"height"`
	MeasuredBy        string    `json:"measured_by,omitempty"`
	Notes             string    `json:"notes,omitempty"`
}

type Diagnosis struct {
	PrimaryDiagnosis      string   `json:"primary_diagnosis" binding:"required"`
	SecondaryDiagnoses    []string `json:"secondary_diagnoses"`
	ICD10Code             string   `json:"icd10_code,omitempty"`
	Severity              string   `json:"severity,omitempty"`
	Confirmed             bool     `json:"confirmed"`
	DifferentialDiagnoses []string `json:"differential_diagnoses"`
}

func (d Diagnosis) Line() string {
	var b strings.Builder
	b.WriteString("Diagnóstico: " + d.PrimaryDiagnosis)
	if d.ICD10Code != "" {
		b.WriteString(" (CIE-10: " + d.ICD10Code + ")")
	}
	if d.Severity != "" {
		b.WriteString(" - Severidad: " + d.Severity)
	}
	return b.String()
}

type Procedure struct {
	ProcedureType   string   `json:"procedure_type" binding:"required"`
	Description     string   `json:"description" binding:"required"`
	DurationMinutes *int     `json:"duration_minutes" binding:"omitempty,min=0"`
	Complications   string   `json:"complications,omitempty"`
	Outcome         string   `json:"outcome,omitempty"`
	Assistants      []string `json:"assistants"`
}

func (p Procedure) Line() string {
	var b strings.Builder
	b.WriteString("Procedimiento: " + p.ProcedureType + " - " + p.Description)
	if p.DurationMinutes != nil && *p.DurationMinutes > 0 {
		b.WriteString(" (Duración: " + strconv.Itoa(*p.DurationMinutes) + " min)")
	}
	if p.Outcome != "" {
		b.WriteString(" - Resultado: " + p.Outcome)
	}
	return b.String()
}

type Evolution struct {
	ClinicalStatus      PatientStatus `json:"clinical_status" binding:"required,oneof=stable improving worsening critical deceased"`
	Symptoms            []string      `json:"symptoms"`
	PhysicalExamination string        `json:"physical_examination"`
	ClinicalImpression  string        `json:"clinical_impression"`
	Plan                string        `json:"plan"`
}

func (e Evolution) Line() string {
	var b strings.Builder
	b.WriteString("Estado clínico: " + string(e.ClinicalStatus))
	if len(e.Symptoms) > 0 {
		b.WriteString(" - Síntomas: " + strings.Join(e.Symptoms, ", "))
	}
	if e.PhysicalExamination != "" {
		b.WriteString(" - Examen físico: " + e.PhysicalExamination)
	}
	if e.ClinicalImpression != "" {
		b.WriteString(" - Impresión clínica: " + e.ClinicalImpression)
	}
	if e.Plan != "" {
		b.WriteString(" - Plan: " + e.Plan)
	}
	return b.String()
}

type Prescription struct {
	MedicationName string `json:"medication_name" binding:"required"`
	Dosage         string `json:"dosage" binding:"required"`
	Frequency      string `json:"frequency" binding:"required"`
	Duration       string `json:"duration" binding:"required"`
	Route          string `json:"route" binding:"required"`
	Instructions   string `json:"instructions,omitempty"`
}

func (p Prescription) Line() string {
	line := "Medicamento: " + p.MedicationName +
		" - Dosis: " + p.Dosage +
		" - Frecuencia: " + p.Frequency +
		" - Duración: " + p.Duration +
		" - Vía: " + p.Route
	if p.Instructions != "" {
		line += " - Instrucciones: " + p.Instructions
	}
	return line
}

// BloodAnalysis is a laboratory panel. Drug screens are positive/negative.
type BloodAnalysis struct {
	AnalysisID      string    `json:"analysis_id"`
	DatePerformed   time.Time `json:"date_performed"`
	RedBloodCells   *float64  `json:"red_blood_cells"`
	Hemoglobin      *float64  `json:"hemoglobin"`
	Hematocrit      *float64  `json:"hematocrit"`
	Platelets       *float64  `json:"platelets"`
	Lymphocytes     *float64  `json:"lymphocytes"`
	Glucose         *float64  `json:"glucose"`
	Cholesterol     *float64  `json:"cholesterol"`
	Urea            *float64  `json:"urea"`
	Cocaine         *bool     `json:"cocaine"`
	Alcohol         *bool     `json:"alcohol"`
	MDMA            *bool     `json:"mdma"`
	Fentanyl        *bool     `json:"fentanyl"`
	PerformedByDNI  string    `json:"performed_by_dni,omitempty"`
	PerformedByName string    `json:"performed_by_name,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	VisitRelatedID  string    `json:"visit_related_id,omitempty"`
}

type RadiologyStudy struct {
	StudyID         string    `json:"study_id"`
	DatePerformed   time.Time `json:"date_performed"`
	StudyType       string    `json:"study_type"`
	BodyPart        string    `json:"body_part"`
	Findings        string    `json:"findings"`
	ImageURL        string    `json:"image_url,omitempty"`
	PerformedByDNI  string    `json:"performed_by_dni,omitempty"`
	PerformedByName string    `json:"performed_by_name,omitempty"`
	VisitRelatedID  string    `json:"visit_related_id,omitempty"`
}
