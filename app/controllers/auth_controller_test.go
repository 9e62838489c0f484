package controllers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradiehq/TradieHQ/app/models"
)

func TestRegisterEnqueuesCRMSync(t *testing.T) {
	repos := setupTestRepositories()
	repos.User = &stubUserRepo{users: map[uint]*models.User{}}
	queue := useCRMQueue(t)

	app := fiber.New()
	app.Post("/register", HandleRegister)

	body := `{"name":"Dana Smith","email":"dana@example.com","password":"secret1","role":"tradie"}`
	req := httptest.NewRequest(fiber.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var payload struct {
		ID   uint   `json:"id"`
		Role string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, models.ROLE_TRADIE, payload.Role)

	assert.Equal(t, []uint{payload.ID}, queue.enqueued, "registration should leave a sync queue row for the new user")
}

func TestRegisterDuplicateEmailDoesNotEnqueue(t *testing.T) {
	repos := setupTestRepositories()
	repos.User = &stubUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Name: "Dana", Email: "dana@example.com", Role: models.ROLE_CLIENT},
	}}
	queue := useCRMQueue(t)

	app := fiber.New()
	app.Post("/register", HandleRegister)

	body := `{"name":"Dana Smith","email":"dana@example.com","password":"secret1","role":"client"}`
	req := httptest.NewRequest(fiber.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Empty(t, queue.enqueued)
}
