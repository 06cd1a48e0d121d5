package visit

import (
	"time"

	"github.com/sigmarp/medical-api/internal/model"
)

const unknownDoctor = "Unknown"

// applyUpdate copies the fields present in req onto v. Several request
// names address differently named visit fields:
//
//	diagnosis                 -> Diagnoses
//	evolution                 -> Evolutions
//	medication, prescriptions -> Prescriptions
//	additional_observations   -> Evolution
//	notes                     -> NursingNotes
func applyUpdate(v *model.Visit, req model.UpdateVisitRequest, by string, now time.Time, newID func() string) error {
	if req.VisitStatus != nil && *req.VisitStatus != v.Status {
		if err := v.SetStatus(*req.VisitStatus); err != nil {
			return err
		}
	}

	if req.Reason != nil {
		v.Reason = *req.Reason
	}
	if req.AttentionDetails != nil {
		v.AttentionDetails = *req.AttentionDetails
	}
	if req.Triage != nil {
		v.Triage = *req.Triage
	}
	if req.PriorityLevel != nil {
		v.PriorityLevel = *req.PriorityLevel
	}

	if req.HasAdmissionVitals() {
		if v.AdmissionVitalSigns == nil {
			v.AdmissionVitalSigns = &model.VitalSigns{
				MeasurementID: newID(),
				MeasuredAt:    now,
				MeasuredBy:    by,
			}
		}
		vs := v.AdmissionVitalSigns
		if req.AdmissionHeartRate != nil {
			vs.HeartRate = req.AdmissionHeartRate
		}
		if req.AdmissionBloodPressure != nil {
			vs.SystolicPressure = req.AdmissionBloodPressure
		}
		if req.AdmissionTemperature != nil {
			vs.Temperature = req.AdmissionTemperature
		}
		if req.AdmissionOxygenSaturation != nil {
			vs.OxygenSaturation = req.AdmissionOxygenSaturation
		}
	}

	setNonEmpty(&v.Diagnoses, req.Diagnosis)
	setNonEmpty(&v.Procedures, req.Procedures)
	setString(&v.Treatment, req.Treatment)
	setString(&v.Evolutions, req.Evolution)
	setString(&v.Prescriptions, req.Medication)
	setString(&v.Prescriptions, req.Prescriptions)
	setString(&v.Evolution, req.AdditionalObservations)
	setNonEmpty(&v.NursingNotes, req.Notes)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// setNonEmpty guards the accumulated logs: an empty value never wipes them.
func setNonEmpty(dst *string, src *string) {
	if src != nil && *src != "" {
		*dst = *src
	}
}

func toResponse(v *model.Visit, d *model.Doctor) model.VisitResponse {
	resp := model.VisitResponse{
		VisitID:                v.ID,
		PatientDNI:             v.PatientDNI,
		Reason:                 v.Reason,
		AttentionPlace:         v.AttentionPlace,
		AttentionDetails:       v.AttentionDetails,
		Location:               v.Location,
		Triage:                 v.Triage,
		VisitStatus:            v.Status,
		AdmissionDate:          v.AdmissionDate,
		DischargeDate:          v.DischargeDate,
		DoctorDNI:              v.AttendingDoctorDNI,
		DoctorName:             unknownDoctor,
		Diagnosis:              v.Diagnoses,
		Procedures:             v.Procedures,
		Treatment:              v.Treatment,
		Evolution:              v.LatestEvolution(),
		Medication:             v.Prescriptions,
		AdditionalObservations: v.Evolution,
		Notes:                  v.NursingNotes,
		CreatedAt:              v.CreatedAt,
		UpdatedAt:              v.UpdatedAt,
		DateOfAdmission:        v.AdmissionDate,
		DateOfDischarge:        v.DischargeDate,
	}
	if d != nil {
		resp.DoctorName = d.Name
		resp.DoctorEmail = d.Email
		resp.DoctorSpecialty = d.Specialty
	}
	return resp
}

func toSummary(v *model.Visit, d *model.Doctor) model.VisitSummary {
	sum := model.VisitSummary{
		VisitID:          v.ID,
		PatientDNI:       v.PatientDNI,
		VisitStatus:      v.Status,
		Reason:           v.Reason,
		AttentionPlace:   v.AttentionPlace,
		AttentionDetails: v.AttentionDetails,
		Location:         v.Location,
		Triage:           v.Triage,
		DoctorDNI:        v.AttendingDoctorDNI,
		DoctorName:       unknownDoctor,
		AdmissionDate:    v.AdmissionDate,
		DischargeDate:    v.DischargeDate,
		DateOfAdmission:  v.AdmissionDate,
		DateOfDischarge:  v.DischargeDate,
	}
	if d != nil {
		sum.DoctorName = d.Name
		sum.DoctorEmail = d.Email
		sum.DoctorSpecialty = d.Specialty
	}
	return sum
}

func toComplete(v *model.Visit, now time.Time) model.VisitComplete {
	blood := v.BloodAnalyses
	if blood == nil {
		blood = []model.BloodAnalysis{}
	}
	radiology := v.RadiologyStudies
	if radiology == nil {
		radiology = []model.RadiologyStudy{}
	}
	indicators := v.QualityIndicators
	if indicators == nil {
		indicators = map[string]interface{}{}
	}

	return model.VisitComplete{
		VisitID:                v.ID,
		PatientDNI:             v.PatientDNI,
		Reason:                 v.Reason,
		AttentionPlace:         v.AttentionPlace,
		AttentionDetails:       v.AttentionDetails,
		Location:               v.Location,
		VisitStatus:            v.Status,
		Triage:                 v.Triage,
		PriorityLevel:          v.PriorityLevel,
		AttendingDoctorDNI:     v.AttendingDoctorDNI,
		AdmissionVitalSigns:    v.AdmissionVitalSigns,
		Diagnoses:              v.Diagnoses,
		Procedures:             v.Procedures,
		Evolutions:             v.Evolutions,
		Prescriptions:          v.Prescriptions,
		Treatment:              v.Treatment,
		Medication:             v.Prescriptions,
		BloodAnalyses:          blood,
		RadiologyStudies:       radiology,
		NursingNotes:           v.NursingNotes,
		AdditionalObservations: v.Evolution,
		QualityIndicators:      indicators,
		CreatedAt:              v.CreatedAt,
		UpdatedAt:              v.UpdatedAt,
		AdmissionDate:          v.AdmissionDate,
		DischargeDate:          v.DischargeDate,
		CreatedBy:              v.CreatedBy,
		LastUpdatedBy:          v.LastUpdatedBy,
		IsCompleted:            v.IsCompleted,
		LengthOfStayHours:      v.LengthOfStay(now),
	}
}
