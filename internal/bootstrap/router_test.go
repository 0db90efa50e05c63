package bootstrap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loops-hq/loops-backend/internal/api/http/middleware"
	"github.com/loops-hq/loops-backend/internal/auth"
	loophttp "github.com/loops-hq/loops-backend/internal/loops/http"
	"github.com/loops-hq/loops-backend/internal/loops/service"
	projecthttp "github.com/loops-hq/loops-backend/internal/projects/http"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLoops struct {
	loophttp.LoopService
	metrics *service.Metrics
}

func (s stubLoops) Metrics() *service.Metrics { return s.metrics }

type stubProjects struct {
	projecthttp.ProjectService
}

func newTestRouter(t *testing.T, dep RouterDeps) *gin.Engine {
	t.Helper()
	dep.ServiceName = "loops-backend"
	dep.Version = "test"
	if dep.Loops == nil {
		dep.Loops = stubLoops{metrics: &service.Metrics{}}
	}
	if dep.Projects == nil {
		dep.Projects = stubProjects{}
	}
	return BuildRouter(dep)
}

func TestRouter_RootRedirects(t *testing.T) {
	r := newTestRouter(t, RouterDeps{})

	for _, path := range []string{"/", "/home"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"), path)
	}
}

func TestRouter_Health(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	r := newTestRouter(t, RouterDeps{Redis: rdb})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "disabled", body.Dependencies["postgres"])
	assert.Equal(t, "up", body.Dependencies["redis"])
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestRouter_AuthGuardsAPI(t *testing.T) {
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
	}
	r := newTestRouter(t, RouterDeps{Auth: deny})

	for _, path := range []string{"/dashboard", "/projects", "/loops/" + uuid.NewString()} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MutationsAreRateLimited(t *testing.T) {
	userID := uuid.New()
	setUser := func(c *gin.Context) {
		auth.SetUser(c, "uid-1", userID)
		c.Next()
	}
	r := newTestRouter(t, RouterDeps{Auth: setUser, Limiter: middleware.NewRateLimiter(0.001, 1)})

	// an empty body is rejected before the service is called
	post := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/loops", nil))
		return w.Code
	}
	assert.Equal(t, http.StatusBadRequest, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}

func TestUserKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", userKey(c))

	id := uuid.New()
	auth.SetUser(c, "uid", id)
	assert.Equal(t, id.String(), userKey(c))
}
