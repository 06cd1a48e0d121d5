// Package user administers registered accounts and the additional roles
// granted to them. Stored grants override the roles carried in a token.
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	apperrors "github.com/sigmarp/medical-api/pkg/errors"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/validator"
)

const DefaultTTL = 30 * time.Second

type Service struct {
	repo     repository.UserRepository
	cache    *cache.Cache
	validate validator.Validator
	log      *logger.Logger
}

func NewService(repo repository.UserRepository, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:     repo,
		cache:    cache.New(ttl, 2*ttl),
		validate: validator.New(),
		log:      log.With("user_service"),
	}
}

// Account returns the stored account for dni, or nil when none is
// registered. Misses are cached too.
func (s *Service) Account(ctx context.Context, dni string) (*model.User, error) {
	if cached, ok := s.cache.Get(dni); ok {
		u, _ := cached.(*model.User)
		return copyUser(u), nil
	}
	u, err := s.repo.GetByDNI(ctx, dni)
	if err != nil {
		return nil, err
	}
	s.cache.Set(dni, u, cache.DefaultExpiration)
	return copyUser(u), nil
}

// RegisterUser creates or updates the account for dni, keeping any roles
// already granted.
func (s *Service) RegisterUser(ctx context.Context, dni string, req model.RegisterUserRequest) (*model.User, error) {
	if dni == "" {
		return nil, apperrors.BadRequest("dni is required", nil)
	}
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.BadRequest("invalid user", err)
	}

	existing, err := s.repo.GetByDNI(ctx, dni)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("get user %s: %w", dni, err))
	}
	u := &model.User{DNI: dni, Name: req.Name, Role: req.Role, Roles: []string{}, Enabled: true}
	if existing != nil {
		u.Roles = existing.Roles
		u.Enabled = existing.Enabled
	}
	if req.Enabled != nil {
		u.Enabled = *req.Enabled
	}

	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "dni", dni, "role", string(u.Role))
	return u, nil
}

// AssignRole grants or revokes an additional role. Repeating an assign or
// revoking a missing role succeeds without changes.
func (s *Service) AssignRole(ctx context.Context, req model.RoleAssignmentRequest, admin model.Actor) (*model.RoleAssignmentResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.BadRequest("invalid role assignment", err)
	}

	u, err := s.repo.GetByDNI(ctx, req.UserDNI)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("get user %s: %w", req.UserDNI, err))
	}
	if u == nil {
		return nil, apperrors.NotFound("user", nil)
	}
	if u.Role != model.RoleDoctor && u.Role != model.RolePolice {
		return nil, apperrors.BadRequest("additional roles can only be granted to doctors and police", nil)
	}

	var message string
	switch req.Action {
	case model.RoleActionAssign:
		if u.HasGrant(req.Role) {
			message = fmt.Sprintf("user already has role '%s'", req.Role)
		} else {
			u.Roles = append(u.Roles, req.Role)
			message = fmt.Sprintf("role '%s' assigned", req.Role)
		}
	case model.RoleActionRevoke:
		if u.HasGrant(req.Role) {
			u.Roles = without(u.Roles, req.Role)
			message = fmt.Sprintf("role '%s' revoked", req.Role)
		} else {
			message = fmt.Sprintf("user does not have role '%s'", req.Role)
		}
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}

	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("role updated", "dni", u.DNI, "role", req.Role, "action", req.Action, "admin", admin.DNI)

	return &model.RoleAssignmentResponse{
		Message:         message,
		UserDNI:         u.DNI,
		UserName:        u.Name,
		UserRole:        u.Role,
		CurrentRoles:    u.Roles,
		ActionPerformed: req.Action,
	}, nil
}

func (s *Service) GetUserRoles(ctx context.Context, dni string) (*model.UserRoleInfo, error) {
	u, err := s.repo.GetByDNI(ctx, dni)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("get user %s: %w", dni, err))
	}
	if u == nil {
		return nil, apperrors.NotFound("user", nil)
	}
	info := u.RoleInfo()
	return &info, nil
}

func (s *Service) ListRecruiters(ctx context.Context) ([]model.UserRoleInfo, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := make([]model.UserRoleInfo, 0)
	for _, u := range users {
		if u.HasGrant(model.RoleRecruiter) {
			out = append(out, u.RoleInfo())
		}
	}
	return out, nil
}

func (s *Service) save(ctx context.Context, u *model.User) error {
	if err := s.repo.Upsert(ctx, u); err != nil {
		return apperrors.Internal(fmt.Errorf("upsert user %s: %w", u.DNI, err))
	}
	s.cache.Delete(u.DNI)
	return nil
}

func without(roles []string, role string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}

func copyUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Roles = append([]string(nil), u.Roles...)
	return &cp
}
