package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmarp/medical-api/internal/model"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewJWTService("secret", "sigma", time.Hour)
	actor := model.Actor{DNI: "20999888", Name: "Dra. Paz", Role: model.RoleDoctor, Roles: []string{model.RoleRecruiter}}

	token, err := svc.Issue(actor)
	require.NoError(t, err)

	got, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, actor, *got)
}

func TestVerify_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "sigma", time.Hour)
	token, err := svc.Issue(model.Actor{DNI: "1", Role: model.RoleAdmin})
	require.NoError(t, err)

	_, err = NewJWTService("other", "sigma", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTService("secret", "elsewhere", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewJWTService("secret", "sigma", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unknownRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		DNI:              "1",
		Role:             "janitor",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "sigma"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Verify(unknownRole)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
