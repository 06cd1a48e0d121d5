package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sigmarp/medical-api/internal/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the caller identity. Roles lists grants on top of Role,
// such as "recruiter".
type Claims struct {
	DNI   string   `json:"dni"`
	Name  string   `json:"name"`
	Role  string   `json:"role"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

type TokenVerifier interface {
	Verify(token string) (*model.Actor, error)
}

type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTService(secret, issuer string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWTService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for actor.
func (s *JWTService) Issue(actor model.Actor) (string, error) {
	now := s.now()
	claims := Claims{
		DNI:   actor.DNI,
		Name:  actor.Name,
		Role:  string(actor.Role),
		Roles: actor.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.DNI,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *JWTService) Verify(token string) (*model.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.DNI == "" {
		return nil, fmt.Errorf("%w: missing dni", ErrInvalidToken)
	}

	role := model.Role(claims.Role)
	switch role {
	case model.RoleDoctor, model.RolePolice, model.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return &model.Actor{DNI: claims.DNI, Name: claims.Name, Role: role, Roles: claims.Roles}, nil
}
