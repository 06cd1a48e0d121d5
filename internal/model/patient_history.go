package model

import "time"

// PatientHistory collects the studies of a patient across visits.
type PatientHistory struct {
	DNI              string           `json:"dni"`
	BloodAnalyses    []BloodAnalysis  `json:"blood_analyses"`
	RadiologyStudies []RadiologyStudy `json:"radiology_studies"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
