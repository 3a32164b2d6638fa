package auth

import (
	"testing"

	"botforge/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestDeriveRole_ServerRoleWins(t *testing.T) {
	admin := "admin"
	meta := map[string]interface{}{"role": "editor"}

	assert.Equal(t, model.RoleAdmin, DeriveRole(&admin, meta))
}

func TestDeriveRole_FallsBackToMeta(t *testing.T) {
	meta := map[string]interface{}{"role": "admin"}

	assert.Equal(t, model.RoleAdmin, DeriveRole(nil, meta))

	empty := ""
	assert.Equal(t, model.RoleAdmin, DeriveRole(&empty, meta))
}

func TestDeriveRole_Default(t *testing.T) {
	assert.Equal(t, model.RoleEditor, DeriveRole(nil, nil))
	assert.Equal(t, model.RoleEditor, DeriveRole(nil, map[string]interface{}{}))
	assert.Equal(t, model.RoleEditor, DeriveRole(nil, map[string]interface{}{"role": ""}))
}

func TestPasswordRoundtrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	assert.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "hunter22"))
	assert.Error(t, CheckPassword(hash, "hunter23"))
}

func TestNewSecretToken(t *testing.T) {
	a, err := NewSecretToken(32)
	assert.NoError(t, err)
	assert.Len(t, a, 64)

	b, err := NewSecretToken(32)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
