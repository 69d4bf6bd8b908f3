package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tolga/reserva/internal/auth"
	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/lock"
	"github.com/tolga/reserva/internal/model"
	"github.com/tolga/reserva/internal/repository"
	"github.com/tolga/reserva/internal/service"
)

var apiNow = time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC)

type apiFixture struct {
	server *httptest.Server
	db     *gorm.DB
	clk    *clock.Fake

	dept model.Department
	room model.Room
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := repository.Open("sqlite", dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))

	clk := clock.NewFake(apiNow)
	cal := clock.NewCalendar(time.UTC, clock.DefaultWindows(), nil)
	tokens := auth.NewTokenManager("test-secret", 15*time.Minute, 7*24*time.Hour, clk)
	resets := auth.NewResetTokenStore(time.Hour, clk)
	t.Cleanup(resets.Close)

	reservationRepo := repository.NewReservationRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)

	notifier := service.NewLogNotifier(zerolog.Nop())
	bookings := service.NewBookingService(db, reservationRepo, roomRepo, userRepo,
		lock.NewRoomLock(), clk, cal, notifier, zerolog.Nop())
	rooms := service.NewRoomService(roomRepo, reservationRepo, departmentRepo)
	users := service.NewUserService(userRepo, tokens, resets, zerolog.Nop())
	departments := service.NewDepartmentService(departmentRepo, userRepo)
	reports := service.NewReportService(repository.NewReportRepository(db), cal)

	router := NewRouter(RouterDeps{
		Auth:         NewAuthHandler(users),
		Reservations: NewReservationHandler(bookings),
		Rooms:        NewRoomHandler(rooms),
		Departments:  NewDepartmentHandler(departments),
		Users:        NewUserHandler(users),
		Reports:      NewReportHandler(reports),
		Tokens:       tokens,
		Logger:       zerolog.Nop(),
		CORSOrigins:  []string{"*"},
	})

	dept := model.Department{Name: "Engineering", Code: "ENG"}
	require.NoError(t, db.Create(&dept).Error)
	room := model.Room{Code: "LAB-101", Name: "Lab", Capacity: 20, DepartmentID: dept.ID, Status: model.RoomActive}
	require.NoError(t, db.Create(&room).Error)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, db: db, clk: clk, dept: dept, room: room}
}

// registerAndLogin creates an account (optionally promoted to role) and
// returns a bearer token.
func (f *apiFixture) registerAndLogin(t *testing.T, email string, role model.Role) string {
	t.Helper()
	status, _ := f.request(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"name":         "Ana",
		"surname":      "Souza",
		"email":        email,
		"password":     "password123",
		"departmentId": f.dept.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	if role != model.RoleUser {
		require.NoError(t, f.db.Model(&model.User{}).
			Where("email = ?", email).
			Update("role", role).Error)
	}

	status, body := f.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	return body["accessToken"].(string)
}

func (f *apiFixture) request(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()
	var reqBody *bytes.Buffer = bytes.NewBuffer(nil)
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	status, body := f.request(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.request(t, http.MethodGet, "/api/v1/reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "UNAUTHENTICATED", errObj["code"])

	status, _ = f.request(t, http.MethodGet, "/api/v1/reservations", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestReservationFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "ana@example.edu", model.RoleUser)

	start := apiNow.Add(5 * time.Hour)
	create := map[string]any{
		"roomId":  f.room.ID,
		"title":   "Team sync",
		"startAt": start.Format(time.RFC3339),
		"endAt":   start.Add(time.Hour).Format(time.RFC3339),
	}

	status, body := f.request(t, http.MethodPost, "/api/v1/reservations", token, create)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "CONFIRMED", body["status"])
	reservationID := uint(body["id"].(float64))

	t.Run("conflicting booking is a 409 with ids", func(t *testing.T) {
		status, body := f.request(t, http.MethodPost, "/api/v1/reservations", token, create)
		assert.Equal(t, http.StatusConflict, status)
		errObj := body["error"].(map[string]any)
		assert.Equal(t, "CONFLICT", errObj["code"])
		details := errObj["details"].(map[string]any)
		assert.NotEmpty(t, details["conflictingIds"])
	})

	t.Run("policy violation is a 422 with the code", func(t *testing.T) {
		tooSoon := apiNow.Add(time.Hour)
		status, body := f.request(t, http.MethodPost, "/api/v1/reservations", token, map[string]any{
			"roomId":  f.room.ID,
			"title":   "Rushed",
			"startAt": tooSoon.Format(time.RFC3339),
			"endAt":   tooSoon.Add(time.Hour).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
		errObj := body["error"].(map[string]any)
		assert.Equal(t, "POLICY_VIOLATION", errObj["code"])
		details := errObj["details"].(map[string]any)
		assert.Equal(t, "NOTICE_TOO_SHORT", details["violation"])
	})

	t.Run("owner sees the reservation", func(t *testing.T) {
		status, body := f.request(t, http.MethodGet, fmt.Sprintf("/api/v1/reservations/%d", reservationID), token, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Team sync", body["title"])
	})

	t.Run("cancel over DELETE", func(t *testing.T) {
		status, _ := f.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", reservationID), token, nil)
		assert.Equal(t, http.StatusNoContent, status)
	})
}

func TestRoleGates(t *testing.T) {
	f := newAPIFixture(t)
	userToken := f.registerAndLogin(t, "user@example.edu", model.RoleUser)
	managerToken := f.registerAndLogin(t, "manager@example.edu", model.RoleManager)

	t.Run("reports are moderator-only", func(t *testing.T) {
		path := "/api/v1/reports/statistics?startDate=" + apiNow.Format(time.RFC3339) +
			"&endDate=" + apiNow.Add(24*time.Hour).Format(time.RFC3339)

		status, body := f.request(t, http.MethodGet, path, userToken, nil)
		assert.Equal(t, http.StatusForbidden, status)
		errObj := body["error"].(map[string]any)
		assert.Equal(t, "FORBIDDEN", errObj["code"])

		status, _ = f.request(t, http.MethodGet, path, managerToken, nil)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("room creation is admin-only", func(t *testing.T) {
		payload := map[string]any{
			"code": "NEW-1", "name": "New Room", "capacity": 5, "departmentId": f.dept.ID,
		}
		status, _ := f.request(t, http.MethodPost, "/api/v1/rooms", managerToken, payload)
		assert.Equal(t, http.StatusForbidden, status)

		adminToken := f.registerAndLogin(t, "admin@example.edu", model.RoleAdmin)
		status, _ = f.request(t, http.MethodPost, "/api/v1/rooms", adminToken, payload)
		assert.Equal(t, http.StatusCreated, status)
	})

	t.Run("approval is moderator-only", func(t *testing.T) {
		start := apiNow.Add(3 * time.Hour)
		status, body := f.request(t, http.MethodPost, "/api/v1/reservations", userToken, map[string]any{
			"roomId":  f.room.ID,
			"title":   "Long workshop",
			"startAt": start.Format(time.RFC3339),
			"endAt":   start.Add(4 * time.Hour).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "PENDING", body["status"])
		id := uint(body["id"].(float64))

		status, _ = f.request(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/approve", id), userToken, nil)
		assert.Equal(t, http.StatusForbidden, status)

		status, body = f.request(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/approve", id), managerToken, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "CONFIRMED", body["status"])
	})
}

func TestMeAndRefresh(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "ana@example.edu", model.RoleUser)

	status, body := f.request(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ana@example.edu", body["email"])

	status, loginBody := f.request(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "ana@example.edu", "password": "password123",
	})
	require.Equal(t, http.StatusOK, status)

	status, refreshed := f.request(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]any{
		"refreshToken": loginBody["refreshToken"],
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, refreshed["accessToken"])
}

func TestNotFoundMapsTo404(t *testing.T) {
	f := newAPIFixture(t)
	token := f.registerAndLogin(t, "ana@example.edu", model.RoleUser)

	status, body := f.request(t, http.MethodGet, "/api/v1/reservations/99999", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
}
