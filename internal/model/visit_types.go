package model

import "time"

type CreateVisitRequest struct {
	PatientDNI       string         `json:"patient_dni" binding:"required"`
	Reason           string         `json:"reason" binding:"required,min=3"`
	AttentionPlace   AttentionPlace `json:"attention_place" binding:"required,oneof=hospital ambulance field clinic"`
	AttentionDetails string         `json:"attention_details"`
	Location         string         `json:"location" binding:"required"`
	Triage           Triage         `json:"triage" binding:"omitempty,oneof=red orange yellow green blue"`
	PriorityLevel    *int           `json:"priority_level" binding:"omitempty,min=1,max=5"`

	AdmissionHeartRate        *int     `json:"admission_heart_rate"`
	AdmissionBloodPressure    *string  `json:"admission_blood_pressure"`
	AdmissionTemperature      *float64 `json:"admission_temperature"`
	AdmissionOxygenSaturation *int     `json:"admission_oxygen_saturation"`
}

// HasAdmissionVitals reports whether any admission vital was supplied.
func (r CreateVisitRequest) HasAdmissionVitals() bool {
	return r.AdmissionHeartRate != nil || r.AdmissionBloodPressure != nil ||
		r.AdmissionTemperature != nil || r.AdmissionOxygenSaturation != nil
}

// UpdateVisitRequest is a partial update: nil fields are left untouched.
type UpdateVisitRequest struct {
	Reason           *string      `json:"reason" binding:"omitempty,min=3"`
	AttentionDetails *string      `json:"attention_details"`
	Triage           *Triage      `json:"triage" binding:"omitempty,oneof=red orange yellow green blue"`
	PriorityLevel    *int         `json:"priority_level" binding:"omitempty,min=1,max=5"`
	VisitStatus      *VisitStatus `json:"visit_status" binding:"omitempty,oneof=admission in_progress observation discharge"`

	AdmissionHeartRate        *int     `json:"admission_heart_rate"`
	AdmissionBloodPressure    *string  `json:"admission_blood_pressure"`
	AdmissionTemperature      *float64 `json:"admission_temperature"`
	AdmissionOxygenSaturation *int     `json:"admission_oxygen_saturation"`

	Diagnosis              *string `json:"diagnosis"`
	Procedures             *string `json:"procedures"`
	Treatment              *string `json:"treatment"`
	Evolution              *string `json:"evolution"`
	Medication             *string `json:"medication"`
	Prescriptions          *string `json:"prescriptions"`
	AdditionalObservations *string `json:"additional_observations"`
	Notes                  *string `json:"notes"`
}

func (r UpdateVisitRequest) HasAdmissionVitals() bool {
	return r.AdmissionHeartRate != nil || r.AdmissionBloodPressure != nil ||
		r.AdmissionTemperature != nil || r.AdmissionOxygenSaturation != nil
}

type VitalSignsRequest struct {
	HeartRate         *int     `json:"heart_rate" binding:"omitempty,min=0"`
	SystolicPressure  *string  `json:"systolic_pressure"`
	DiastolicPressure *string  `json:"diastolic_pressure"`
	Temperature       *float64 `json:"temperature"`
	OxygenSaturation  *int     `json:"oxygen_saturation" binding:"omitempty,min=0,max=100"`
	RespiratoryRate   *string  `json:"respiratory_rate"`
	Weight            *string  `json:"weight"`
	Height            *string  `json:"height"`
	Notes             string   `json:"notes"`
}

type BloodAnalysisRequest struct {
	RedBloodCells *float64 `json:"red_blood_cells"`
	Hemoglobin    *float64 `json:"hemoglobin"`
	Hematocrit    *float64 `json:"hematocrit"`
	Platelets     *float64 `json:"platelets"`
	Lymphocytes   *float64 `json:"lymphocytes"`
	Glucose       *float64 `json:"glucose"`
	Cholesterol   *float64 `json:"cholesterol"`
	Urea          *float64 `json:"urea"`
	Cocaine       *bool    `json:"cocaine"`
	Alcohol       *bool    `json:"alcohol"`
	MDMA          *bool    `json:"mdma"`
	Fentanyl      *bool    `json:"fentanyl"`
	Notes         string   `json:"notes"`
	// VisitRelatedID is accepted for compatibility and always replaced by
	// the target visit id.
	VisitRelatedID string `json:"visit_related_id"`
}

type RadiologyStudyRequest struct {
	StudyType      string `json:"study_type" binding:"required"`
	BodyPart       string `json:"body_part" binding:"required"`
	Findings       string `json:"findings" binding:"required"`
	ImageURL       string `json:"image_url" binding:"omitempty,url"`
	VisitRelatedID string `json:"visit_related_id"`
}

// VisitResponse is the simplified visit projection.
type VisitResponse struct {
	VisitID                string         `json:"visit_id"`
	PatientDNI             string         `json:"patient_dni"`
	Reason                 string         `json:"reason"`
	AttentionPlace         AttentionPlace `json:"attention_place"`
	AttentionDetails       string         `json:"attention_details,omitempty"`
	Location               string         `json:"location"`
	Triage                 Triage         `json:"triage,omitempty"`
	VisitStatus            VisitStatus    `json:"visit_status"`
	AdmissionDate          time.Time      `json:"admission_date"`
	DischargeDate          *time.Time     `json:"discharge_date"`
	DoctorDNI              string         `json:"doctor_dni"`
	DoctorName             string         `json:"doctor_name"`
	DoctorEmail            string         `json:"doctor_email,omitempty"`
	DoctorSpecialty        string         `json:"doctor_specialty,omitempty"`
	Diagnosis              string         `json:"diagnosis,omitempty"`
	Procedures             string         `json:"procedures,omitempty"`
	Treatment              string         `json:"treatment,omitempty"`
	Evolution              string         `json:"evolution,omitempty"`
	Medication             string         `json:"medication,omitempty"`
	AdditionalObservations string         `json:"additional_observations,omitempty"`
	Notes                  string         `json:"notes,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DateOfAdmission        time.Time      `json:"date_of_admission"`
	DateOfDischarge        *time.Time     `json:"date_of_discharge"`
}

// VisitSummary is the list projection used for a patient's history.
type VisitSummary struct {
	VisitID          string         `json:"visit_id"`
	PatientDNI       string         `json:"patient_dni"`
	VisitStatus      VisitStatus    `json:"visit_status"`
	Reason           string         `json:"reason"`
	AttentionPlace   AttentionPlace `json:"attention_place"`
	AttentionDetails string         `json:"attention_details,omitempty"`
	Location         string         `json:"location"`
	Triage           Triage         `json:"triage,omitempty"`
	DoctorDNI        string         `json:"doctor_dni"`
	DoctorName       string         `json:"doctor_name"`
	DoctorEmail      string         `json:"doctor_email,omitempty"`
	DoctorSpecialty  string         `json:"doctor_specialty,omitempty"`
	AdmissionDate    time.Time      `json:"admission_date"`
	DischargeDate    *time.Time     `json:"discharge_date"`
	DateOfAdmission  time.Time      `json:"date_of_admission"`
	DateOfDischarge  *time.Time     `json:"date_of_discharge"`
}

// VisitComplete is the fully expanded visit projection.
type VisitComplete struct {
	VisitID                string                 `json:"visit_id"`
	PatientDNI             string                 `json:"patient_dni"`
	Reason                 string                 `json:"reason"`
	AttentionPlace         AttentionPlace         `json:"attention_place"`
	AttentionDetails       string                 `json:"attention_details,omitempty"`
	Location               string                 `json:"location"`
	VisitStatus            VisitStatus            `json:"visit_status"`
	Triage                 Triage                 `json:"triage,omitempty"`
	PriorityLevel          int                    `json:"priority_level"`
	AttendingDoctorDNI     string                 `json:"attending_doctor_dni"`
	AdmissionVitalSigns    *VitalSigns            `json:"admission_vital_signs"`
	Diagnoses              string                 `json:"diagnoses"`
	Procedures             string                 `json:"procedures"`
	Evolutions             string                 `json:"evolutions"`
	Prescriptions          string                 `json:"prescriptions"`
	Treatment              string                 `json:"treatment"`
	Medication             string                 `json:"medication"`
	BloodAnalyses          []BloodAnalysis        `json:"blood_analyses"`
	RadiologyStudies       []RadiologyStudy       `json:"radiology_studies"`
	NursingNotes           string                 `json:"nursing_notes,omitempty"`
	AdditionalObservations string                 `json:"additional_observations,omitempty"`
	QualityIndicators      map[string]interface{} `json:"quality_indicators"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
	AdmissionDate          time.Time              `json:"admission_date"`
	DischargeDate          *time.Time             `json:"discharge_date"`
	CreatedBy              string                 `json:"created_by,omitempty"`
	LastUpdatedBy          string                 `json:"last_updated_by,omitempty"`
	IsCompleted            bool                   `json:"is_completed"`
	LengthOfStayHours      int64                  `json:"length_of_stay_hours"`
}

// The *Response types below are synthesized at write time. Their ids are
// not part of the stored log line.

type DiagnosisResponse struct {
	DiagnosisID string    `json:"diagnosis_id"`
	DiagnosedAt time.Time `json:"diagnosed_at"`
	Diagnosis
	DiagnosedBy string `json:"diagnosed_by,omitempty"`
}

type ProcedureResponse struct {
	ProcedureID string    `json:"procedure_id"`
	PerformedAt time.Time `json:"performed_at"`
	Procedure
	PerformedBy string `json:"performed_by,omitempty"`
}

type EvolutionResponse struct {
	EvolutionID string    `json:"evolution_id"`
	RecordedAt  time.Time `json:"recorded_at"`
	Evolution
	RecordedBy string `json:"recorded_by,omitempty"`
}

type PrescriptionResponse struct {
	PrescriptionID string    `json:"prescription_id"`
	PrescribedAt   time.Time `json:"prescribed_at"`
	Prescription
	PrescribedBy string `json:"prescribed_by,omitempty"`
}
