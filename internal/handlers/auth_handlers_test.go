package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sacredheart/pharmacy_shop/internal/hash"
	"github.com/sacredheart/pharmacy_shop/internal/models"
	"github.com/sacredheart/pharmacy_shop/internal/mykafka"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
		return nil
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Category{},
		&models.Medicine{},
		&models.Prescription{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func LoadConfig(t *testing.T) (*gorm.DB, []byte, []byte) {
	db := InitTestDB(t)

	jwt_secret := []byte("test-jwt-secret")
	refresh := []byte("test-refresh-secret")

	return db, jwt_secret, refresh
}

func TestRegister(t *testing.T) {
	payload := map[string]string{
		"username": "test_user",
		"password": "password",
		"email":    "test@example.com",
		"phone":    "9876543210",
	}
	db, jwt_secret, refresh := LoadConfig(t)
	bodyBytes, _ := json.Marshal(payload)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(bodyBytes))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	AuthHandler := AuthHandler{
		DB:            db,
		JWTSecret:     jwt_secret,
		RefreshSecret: refresh,
		Producer:      &mykafka.Producer{},
	}

	require.NoError(t, AuthHandler.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var valid_user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &valid_user))
	require.Equal(t, "test_user", valid_user.Username)
	require.Equal(t, "user", valid_user.Role)
	require.Equal(t, "test@example.com", valid_user.Email)
	require.NotEmpty(t, valid_user.ID)

	var stored models.User
	require.NoError(t, db.Where("username = ?", "test_user").First(&stored).Error)
	require.NotEqual(t, "password", stored.PasswordHash)

	req_invalid := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(bodyBytes))
	req_invalid.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec_invalid := httptest.NewRecorder()
	c_invalid := e.NewContext(req_invalid, rec_invalid)

	err := AuthHandler.Register(c_invalid)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRegisterDBFailure(t *testing.T) {
	db, jwt_secret, refresh := LoadConfig(t)

	AuthHandler := AuthHandler{
		DB:            db,
		JWTSecret:     jwt_secret,
		RefreshSecret: refresh,
		Producer:      &mykafka.Producer{},
	}

	require.NoError(t, db.Migrator().DropTable(&models.User{}))

	payload := map[string]string{
		"username": "test_user",
		"password": "password",
	}
	bodyBytes, _ := json.Marshal(payload)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(bodyBytes))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := AuthHandler.Register(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusInternalServerError, he.Code, "a db failure must not read as a duplicate user")
}

func TestLogin(t *testing.T) {
	db, jwt_secret, refresh := LoadConfig(t)

	AuthHandler := AuthHandler{
		DB:            db,
		JWTSecret:     jwt_secret,
		RefreshSecret: refresh,
		Producer:      &mykafka.Producer{},
	}

	hash, _ := hash.HashPassword("password")

	user := models.User{
		Username:     "test_user",
		PasswordHash: hash,
		Role:         "user",
	}

	db.Create(&user)

	load := map[string]string{
		"username": "test_user",
		"password": "password",
	}
	e := echo.New()
	bodyBytes, _ := json.Marshal(load)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(bodyBytes))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, AuthHandler.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var RespData map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &RespData))
	access_token, ok1 := RespData["access_token"]
	refresh_token, ok2 := RespData["refresh_token"]
	require.True(t, ok1, "expected 'access_token' in field")
	require.True(t, ok2, "expected 'refresh_token' in field")
	require.NotEmpty(t, access_token)
	require.NotEmpty(t, refresh_token)
	require.Equal(t, false, RespData["is_admin"])

	invalid_load := map[string]string{
		"username": "test_user",
		"password": "invalid_password",
	}

	badBodyBytes, _ := json.Marshal(invalid_load)
	req_invalid := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(badBodyBytes))
	req_invalid.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec_invalid := httptest.NewRecorder()
	c_invalid := e.NewContext(req_invalid, rec_invalid)

	err := AuthHandler.Login(c_invalid)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestLoginAdminFlag(t *testing.T) {
	db, jwt_secret, refresh := LoadConfig(t)

	AuthHandler := AuthHandler{
		DB:            db,
		JWTSecret:     jwt_secret,
		RefreshSecret: refresh,
		Producer:      &mykafka.Producer{},
	}

	admin_hash, _ := hash.HashPassword("admin123")
	db.Create(&models.User{Username: "admin", PasswordHash: admin_hash, Role: "admin"})

	load := map[string]string{
		"username": "admin",
		"password": "admin123",
	}
	e := echo.New()
	bodyBytes, _ := json.Marshal(load)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(bodyBytes))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, AuthHandler.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var RespData map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &RespData))
	require.Equal(t, true, RespData["is_admin"])
}

func TestLogOut(t *testing.T) {
	db, jwt_secret, refresh_secret := LoadConfig(t)
	AuthHandler := AuthHandler{
		DB:            db,
		JWTSecret:     jwt_secret,
		RefreshSecret: refresh_secret,
		Producer:      &mykafka.Producer{},
	}

	load := map[string]string{
		"username": "test_user",
		"password": "password",
	}

	e := echo.New()
	BodyBytes, _ := json.Marshal(load)
	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(BodyBytes))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, AuthHandler.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	req_login := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(BodyBytes))
	req_login.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec_login := httptest.NewRecorder()
	c_login := e.NewContext(req_login, rec_login)
	require.NoError(t, AuthHandler.Login(c_login))
	require.Equal(t, http.StatusOK, rec_login.Code)
	var RespData_login map[string]interface{}
	require.NoError(t, json.Unmarshal(rec_login.Body.Bytes(), &RespData_login))
	refresh_token := RespData_login["refresh_token"]

	req_logout := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req_logout.AddCookie(&http.Cookie{
		Name:  "refreshToken",
		Value: refresh_token.(string),
	})
	rec_logout := httptest.NewRecorder()
	c_logout := e.NewContext(req_logout, rec_logout)

	require.NoError(t, AuthHandler.LogOut(c_logout))
	require.Equal(t, http.StatusOK, rec_logout.Code)

	var RespData map[string]string
	require.NoError(t, json.Unmarshal(rec_logout.Body.Bytes(), &RespData))
	require.Equal(t, "logged out", RespData["message"])

	var revoked models.RefreshToken
	require.NoError(t, db.Where("token = ?", refresh_token.(string)).First(&revoked).Error)
	require.True(t, revoked.Revoked)
}
