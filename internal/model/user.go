package model

// User is a registered account. Roles holds the additional grants on top
// of the base Role and is the source of truth once an account exists.
type User struct {
	DNI     string   `json:"dni"`
	Name    string   `json:"name"`
	Role    Role     `json:"role"`
	Roles   []string `json:"roles"`
	Enabled bool     `json:"enabled"`
}

func (u User) HasGrant(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

const (
	RoleActionAssign = "assign"
	RoleActionRevoke = "revoke"
)

type RegisterUserRequest struct {
	Name    string `json:"name" binding:"required"`
	Role    Role   `json:"role" binding:"required,oneof=doctor police"`
	Enabled *bool  `json:"enabled"`
}

type RoleAssignmentRequest struct {
	UserDNI string `json:"user_dni" binding:"required"`
	Role    string `json:"role" binding:"required,oneof=recruiter"`
	Action  string `json:"action" binding:"required,oneof=assign revoke"`
}

type RoleAssignmentResponse struct {
	Message         string   `json:"message"`
	UserDNI         string   `json:"user_dni"`
	UserName        string   `json:"user_name"`
	UserRole        Role     `json:"user_role"`
	CurrentRoles    []string `json:"current_roles"`
	ActionPerformed string   `json:"action_performed"`
}

type UserRoleInfo struct {
	UserDNI         string   `json:"user_dni"`
	UserName        string   `json:"user_name"`
	UserRole        Role     `json:"user_role"`
	AdditionalRoles []string `json:"additional_roles"`
	Enabled         bool     `json:"enabled"`
}

func (u User) RoleInfo() UserRoleInfo {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserRoleInfo{
		UserDNI:         u.DNI,
		UserName:        u.Name,
		UserRole:        u.Role,
		AdditionalRoles: roles,
		Enabled:         u.Enabled,
	}
}
