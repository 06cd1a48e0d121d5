package model

import (
	"strings"
	"time"
)

type Profession string

const (
	ProfessionEMS    Profession = "EMS"
	ProfessionPolice Profession = "POLICE"
)

// ParseProfession accepts the profession name in any letter case.
func ParseProfession(s string) (Profession, bool) {
	switch p := Profession(strings.ToUpper(strings.TrimSpace(s))); p {
	case ProfessionEMS, ProfessionPolice:
		return p, true
	default:
		return p, false
	}
}

type Recruitment struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	DNI         string     `json:"dni"`
	Discord     string     `json:"discord"`
	Phone       string     `json:"phone"`
	Profession  Profession `json:"profession"`
	Motivation  string     `json:"motivation"`
	Experience  string     `json:"experience"`
	Description []string   `json:"description"`
	Attended    bool       `json:"attended"`
	AttendedBy  string     `json:"attended_by,omitempty"`
	AttendedAt  *time.Time `json:"attended_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateRecruitmentRequest struct {
	Name        string     `json:"name" binding:"required"`
	DNI         string     `json:"dni" binding:"required"`
	Discord     string     `json:"discord" binding:"required"`
	Phone       string     `json:"phone" binding:"required"`
	Profession  Profession `json:"profession" binding:"required"`
	Motivation  string     `json:"motivation" binding:"required"`
	Experience  string     `json:"experience" binding:"required"`
	Description []string   `json:"description" binding:"required,min=1,dive,required"`
}
