package document

import "github.com/sigmarp/medical-api/pkg/docstore"

// Indexes lists the compound indexes backing the repository queries.
func Indexes() []docstore.IndexSpec {
	return []docstore.IndexSpec{
		{Collection: VisitsCollection, Fields: []string{"patient_dni", "admission_date"}},
		{Collection: VisitsCollection, Fields: []string{"attending_doctor_dni", "admission_date"}},
		{Collection: VisitsCollection, Fields: []string{"visit_status", "admission_date"}},
		{Collection: VisitsCollection, Fields: []string{"admission_date"}},
		{Collection: MedicalRecruitmentsCollection, Fields: []string{"attended", "created_at"}},
		{Collection: PoliceRecruitmentsCollection, Fields: []string{"attended", "created_at"}},
	}
}
