package analysis

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/model"
	"github.com/mayurbijarniya/nutriai/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testDeps(t *testing.T) *internal.Deps {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(model.Analysis{}, model.ShareLink{}))

	store, err := storage.New()
	require.NoError(t, err)

	return &internal.Deps{DB: db, Store: store}
}

// historyRouter serves the history routes as the given identity
func historyRouter(d *internal.Deps, scope string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("requestID", "test")
		c.Set("scope", scope)
		if !identity.IsGuestScope(scope) {
			c.Set("userID", identity.OwnerID(scope))
		}
		c.Next()
	})

	r.GET("/api/analyses", func(c *gin.Context) { FetchBulk(c, d) })
	r.GET("/api/analyses/:id", func(c *gin.Context) { Fetch(c, d) })
	r.DELETE("/api/analyses/:id", func(c *gin.Context) { Delete(c, d) })
	r.DELETE("/api/analyses", func(c *gin.Context) { Clear(c, d) })

	return r
}

func seed(t *testing.T, db *gorm.DB, recs ...model.Analysis) {
	t.Helper()

	for _, rec := range recs {
		require.NoError(t, db.Create(&rec).Error)
	}
}

func TestHistoryIsScoped(t *testing.T) {
	d := testDeps(t)

	seed(t, d.DB,
		model.Analysis{ID: "g1a", GuestID: "g1", CreatedAt: 1},
		model.Analysis{ID: "g1b", GuestID: "g1", CreatedAt: 2},
		model.Analysis{ID: "u1a", UserID: "u1", CreatedAt: 3},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analyses", nil)
	historyRouter(d, identity.GuestScope("g1")).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"count":2`)
	assert.NotContains(t, body, "u1a", "another scope's rows must never leak")
}

func TestHistoryNewestFirst(t *testing.T) {
	d := testDeps(t)

	seed(t, d.DB,
		model.Analysis{ID: "old", UserID: "u1", CreatedAt: 1},
		model.Analysis{ID: "new", UserID: "u1", CreatedAt: 2},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analyses?limit=1", nil)
	historyRouter(d, identity.UserScope("u1")).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"new"`)
	assert.NotContains(t, w.Body.String(), `"old"`)
}

func TestFetchForeignRowIs404(t *testing.T) {
	d := testDeps(t)

	seed(t, d.DB, model.Analysis{ID: "u1a", UserID: "u1", CreatedAt: 1})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/analyses/u1a", nil)
	historyRouter(d, identity.GuestScope("g1")).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDeactivatesShareLinks(t *testing.T) {
	d := testDeps(t)

	seed(t, d.DB, model.Analysis{ID: "u1a", UserID: "u1", CreatedAt: 1})
	require.NoError(t, d.DB.Create(&model.ShareLink{
		ID: "s1", Token: "tok", AnalysisID: "u1a", UserID: "u1", IsActive: true,
	}).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/analyses/u1a", nil)
	historyRouter(d, identity.UserScope("u1")).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var link model.ShareLink
	require.NoError(t, d.DB.First(&link, "id = ?", "s1").Error)
	assert.False(t, link.IsActive)
}

func TestDeleteForeignRowIs404(t *testing.T) {
	d := testDeps(t)

	seed(t, d.DB, model.Analysis{ID: "u1a", UserID: "u1", CreatedAt: 1})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/analyses/u1a", nil)
	historyRouter(d, identity.UserScope("u2")).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, d.DB.Model(model.Analysis{}).Count(&count).Error)
	assert.EqualValues(t, 1, count, "the row must survive a foreign delete")
}

func TestClearOnlyTouchesOwnScope(t *testing.T) {
	d := testDeps(t)

	seed(t, d.DB,
		model.Analysis{ID: "g1a", GuestID: "g1", CreatedAt: 1},
		model.Analysis{ID: "g1b", GuestID: "g1", CreatedAt: 2},
		model.Analysis{ID: "u1a", UserID: "u1", CreatedAt: 3},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/analyses", nil)
	historyRouter(d, identity.GuestScope("g1")).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":2`)

	var left []model.Analysis
	require.NoError(t, d.DB.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "u1a", left[0].ID)
}
