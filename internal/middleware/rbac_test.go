package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Mrsuave-tt/ProjectPlatecv3/internal/models"
)

func runRBAC(t *testing.T, claims *models.JWTClaims, param string, allowed ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	if param != "" {
		c.Params = gin.Params{{Key: "id", Value: param}}
	}
	handled := false
	RBAC(allowed...)(c)
	if !c.IsAborted() {
		handled = true
	}
	if handled {
		return http.StatusOK
	}
	return w.Code
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	code := runRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}, "", string(models.RoleAdmin))
	require.Equal(t, http.StatusOK, code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	code := runRBAC(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, "", string(models.RoleAdmin))
	require.Equal(t, http.StatusForbidden, code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	code := runRBAC(t, nil, "", string(models.RoleAdmin))
	require.Equal(t, http.StatusUnauthorized, code)
}

func TestRBACSelfMatchesLinkedStudent(t *testing.T) {
	claims := &models.JWTClaims{UserID: "acc-1", StudentID: "stu-1", Role: models.RoleStudent}
	code := runRBAC(t, claims, "stu-1", string(models.RoleAdmin), "SELF")
	require.Equal(t, http.StatusOK, code)
}

func TestRBACSelfRejectsOtherStudent(t *testing.T) {
	claims := &models.JWTClaims{UserID: "acc-1", StudentID: "stu-1", Role: models.RoleStudent}
	code := runRBAC(t, claims, "stu-2", string(models.RoleAdmin), "SELF")
	require.Equal(t, http.StatusForbidden, code)
}
