package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/internal/config"
	"github.com/iudanet/petalsync/internal/models"
	"github.com/iudanet/petalsync/internal/server/jwt"
)

func TestIssueToken(t *testing.T) {
	cfg := &config.Server{JWTSecret: "secret", TokenTTL: time.Hour}

	var out bytes.Buffer
	require.NoError(t, issueToken(&out, cfg, "storefront-1", models.RoleStorefront))

	token, _, _ := strings.Cut(out.String(), "\n")
	claims, err := jwt.NewService("secret", time.Hour).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "storefront-1", claims.Subject)
	assert.Equal(t, models.RoleStorefront, claims.Role)
	assert.Contains(t, out.String(), "# expires")
}

func TestIssueToken_Errors(t *testing.T) {
	var out bytes.Buffer

	err := issueToken(&out, &config.Server{TokenTTL: time.Hour}, "admin-1", models.RoleAdmin)
	assert.ErrorContains(t, err, "jwt_secret")

	err = issueToken(&out, &config.Server{JWTSecret: "s", TokenTTL: time.Hour}, "shop admin", models.RoleAdmin)
	assert.ErrorContains(t, err, "can only contain")

	err = issueToken(&out, &config.Server{JWTSecret: "s", TokenTTL: time.Hour}, "owner-1", models.Role("owner"))
	assert.ErrorContains(t, err, "unknown role")
	assert.Empty(t, out.String())
}

func TestRootCmd_Version(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "PetalSync Server")
	assert.Contains(t, out.String(), "Version:    dev")
}

func TestRootCmd_TokenFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PETAL_JWT_SECRET", "env-secret")

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"token", "--subject", "admin-1", "--role", "admin"})

	require.NoError(t, cmd.Execute())

	token, _, _ := strings.Cut(out.String(), "\n")
	claims, err := jwt.NewService("env-secret", time.Hour).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}
