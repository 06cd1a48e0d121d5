package model

type Role string

const (
	RoleDoctor Role = "doctor"
	RolePolice Role = "police"
	RoleAdmin  Role = "admin"
)

// RoleRecruiter is an additional role granted on top of doctor or police.
const RoleRecruiter = "recruiter"

// Actor is the authenticated caller of an operation.
type Actor struct {
	DNI   string   `json:"dni"`
	Name  string   `json:"name"`
	Role  Role     `json:"role"`
	Roles []string `json:"roles,omitempty"`
}

func (a Actor) HasRole(role string) bool {
	if string(a.Role) == role {
		return true
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanRecruit reports whether the actor reviews applications for the given
// profession: recruiter doctors review EMS, recruiter police review POLICE.
func (a Actor) CanRecruit(p Profession) bool {
	if a.Role == RoleAdmin {
		return true
	}
	if !a.HasRole(RoleRecruiter) {
		return false
	}
	switch p {
	case ProfessionEMS:
		return a.Role == RoleDoctor
	case ProfessionPolice:
		return a.Role == RolePolice
	}
	return false
}
