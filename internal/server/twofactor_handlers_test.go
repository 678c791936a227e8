package server

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorSetupAndLogin(t *testing.T) {
	s, app := newTestServer(t)
	ctx := context.Background()
	user, access := createActiveUser(t, s, "totpuser")

	status, envelope := doJSON(t, app, fiber.MethodPost, "/api/accounts/2fa/setup", nil, access)
	require.Equal(t, fiber.StatusOK, status)
	setup := dataMap(t, envelope)
	uri, _ := setup["uri"].(string)
	assert.Contains(t, uri, "otpauth://totp/")

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/accounts/2fa/confirm", fiber.Map{
		"code": "000000",
	}, access)
	assert.Equal(t, fiber.StatusBadRequest, status, "wrong code")

	device, err := s.totpRepo.GetByUser(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(device.Secret, time.Now())
	require.NoError(t, err)

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/accounts/2fa/confirm", fiber.Map{
		"code": code,
	}, access)
	require.Equal(t, fiber.StatusOK, status)

	// Login now returns a challenge instead of tokens.
	status, envelope = doJSON(t, app, fiber.MethodPost, "/api/accounts/login", fiber.Map{
		"email":    "totpuser@example.com",
		"password": testPassword,
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "2fa_required", envelope.Type)
	challenge := dataMap(t, envelope)
	assert.EqualValues(t, user.ID, challenge["user_id"])

	code, err = totp.GenerateCode(device.Secret, time.Now())
	require.NoError(t, err)
	status, envelope = doJSON(t, app, fiber.MethodPost, "/api/accounts/verify-2fa", fiber.Map{
		"user_id": user.ID,
		"code":    code,
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	tokens, ok := dataMap(t, envelope)["tokens"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, tokens["access"])
}

func TestTwoFactorCancel(t *testing.T) {
	s, app := newTestServer(t)
	_, access := createActiveUser(t, s, "totpuser")

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/accounts/2fa/setup", nil, access)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/accounts/2fa/cancel", nil, access)
	require.Equal(t, fiber.StatusOK, status)

	// With the pending device gone, login issues tokens directly.
	status, envelope := doJSON(t, app, fiber.MethodPost, "/api/accounts/login", fiber.Map{
		"email":    "totpuser@example.com",
		"password": testPassword,
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", envelope.Type)
}

func TestVerify2FARequiresFields(t *testing.T) {
	_, app := newTestServer(t)

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/accounts/verify-2fa", fiber.Map{
		"code": "123456",
	}, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}
