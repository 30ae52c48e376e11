package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/service"
)

type loginAccountsStub struct {
	account *models.Account
}

func (s loginAccountsStub) FindByID(ctx context.Context, id string) (*models.Account, error) {
	if s.account == nil || s.account.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.account, nil
}

func (s loginAccountsStub) FindByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	if s.account == nil || (s.account.Username != identifier && s.account.Email != identifier) {
		return nil, sql.ErrNoRows
	}
	return s.account, nil
}

func (loginAccountsStub) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return nil
}

func (loginAccountsStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

type loginStudentsStub struct {
	student *models.Student
}

func (s loginStudentsStub) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

func newLoginService(t *testing.T, active bool, linked bool) *service.AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("S001"), bcrypt.MinCost)
	require.NoError(t, err)
	account := &models.Account{
		ID:           "acc-1",
		Username:     "S001",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		Active:       active,
	}
	students := loginStudentsStub{}
	if linked {
		students.student = &models.Student{ID: "stu-1", StudentNo: "S001"}
	}
	return service.NewAuthService(loginAccountsStub{account: account}, students,
		service.AuthConfig{Secret: "test-secret", Expiration: time.Hour}, nil)
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(newLoginService(t, true, true))

	payload, _ := json.Marshal(models.LoginRequest{Identifier: "S001", Password: "S001"})
	c, w := newGinContext(http.MethodPost, "/login", payload)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "S001", envelope.Data.StudentID)
	assert.NotEmpty(t, envelope.Data.AccessToken)
}

func TestAuthHandlerLoginFailuresShareOneResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[string]struct {
		svc     *service.AuthService
		payload models.LoginRequest
	}{
		"wrong password":    {newLoginService(t, true, true), models.LoginRequest{Identifier: "S001", Password: "nope"}},
		"inactive account":  {newLoginService(t, false, true), models.LoginRequest{Identifier: "S001", Password: "S001"}},
		"no linked student": {newLoginService(t, true, false), models.LoginRequest{Identifier: "S001", Password: "S001"}},
	}
	for name, tc := range cases {
		h := NewAuthHandler(tc.svc)
		payload, _ := json.Marshal(tc.payload)
		c, w := newGinContext(http.MethodPost, "/login", payload)
		h.Login(c)

		require.Equal(t, http.StatusUnauthorized, w.Code, name)
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		assert.Equal(t, "INVALID_LOGIN", envelope.Error.Code, name)
		assert.Equal(t, "invalid login", envelope.Error.Message, name)
	}
}
