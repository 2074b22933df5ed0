package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordedRequest struct {
	method string
	path   string
	status int
}

type stubObserver struct{ seen []recordedRequest }

func (s *stubObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	s.seen = append(s.seen, recordedRequest{method: method, path: path, status: status})
}

func newRouter(observer RequestObserver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := stubTokens{
		"student":   {UserID: "student-1", Role: models.RoleStudent},
		"collector": {UserID: "collector-1", Role: models.RoleFeeCollector},
	}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/students/:studentId/engagement", JWT(tokens), RBAC(string(models.RoleAdmin), string(models.RoleFeeCollector), "SELF"), func(c *gin.Context) {
		claims, _ := Claims(c)
		c.String(http.StatusOK, claims.UserID)
	})
	return r
}

func serve(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRBAC(t *testing.T) {
	r := newRouter(nil)

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"missing header", "/students/student-1/engagement", "", http.StatusUnauthorized},
		{"bad token", "/students/student-1/engagement", "nope", http.StatusUnauthorized},
		{"student reads self", "/students/student-1/engagement", "student", http.StatusOK},
		{"student reads other", "/students/student-2/engagement", "student", http.StatusForbidden},
		{"collector reads any", "/students/student-2/engagement", "collector", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(r, tc.path, tc.token)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	r := newRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/students/student-1/engagement", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &stubObserver{}
	r := newRouter(observer)
	serve(r, "/students/student-1/engagement", "student")
	serve(r, "/nowhere", "")

	if assert.Len(t, observer.seen, 2) {
		assert.Equal(t, recordedRequest{method: http.MethodGet, path: "/students/:studentId/engagement", status: http.StatusOK}, observer.seen[0])
		assert.Equal(t, "unmatched", observer.seen[1].path)
		assert.Equal(t, http.StatusNotFound, observer.seen[1].status)
	}
}
