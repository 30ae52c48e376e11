package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRequest(t *testing.T, incomingID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/students", nil)
	if incomingID != "" {
		c.Request.Header.Set("X-Request-ID", incomingID)
	}
	Middleware()(c)
	return c, w
}

func TestMiddlewareGeneratesUUID(t *testing.T) {
	c, w := runRequest(t, "")

	id := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err, "generated request ids are UUIDs")
	assert.Equal(t, id, Value(c))
}

func TestMiddlewareHonorsCallerID(t *testing.T) {
	c, w := runRequest(t, "upstream-77")

	assert.Equal(t, "upstream-77", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "upstream-77", Value(c))
}
