package model

// Doctor is the professional profile used to decorate visit projections.
type Doctor struct {
	DNI       string `json:"dni"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}
