package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tsam/console/internal/config"
	"github.com/tsam/console/internal/domain"
)

func init() { gin.SetMode(gin.TestMode) }

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func setupAPI(t *testing.T) (*API, *gorm.DB, *gin.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := config.SetupDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: config.SQLiteMemory},
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	api := New(db, Options{Logger: logger})
	require.NoError(t, api.Migrate(context.Background()))

	r := gin.New()
	api.RegisterRoutes(r.Group(config.EmbeddedAPIPath))
	return api, db, r
}

func request(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Error string `json:"error"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error.Error
}

func seedTechnologies(t *testing.T, db *gorm.DB) {
	t.Helper()
	techs := []domain.Technology{
		{Name: "Go", Rating: 5},
		{Name: "Java", Rating: 4},
		{Name: "JavaScript", Rating: 4},
		{Name: "React", Rating: 5},
		{Name: "Python", Rating: 4},
		{Name: "PHP", Rating: 2},
		{Name: "C_Sharp", Rating: 3},
	}
	require.NoError(t, db.Create(&techs).Error)
}

func decodeTechs(t *testing.T, w *httptest.ResponseRecorder) []domain.Technology {
	t.Helper()
	var out []domain.Technology
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestList_PaginationAndTotalCount(t *testing.T) {
	_, db, r := setupAPI(t)
	seedTechnologies(t, db)

	w := request(r, http.MethodGet, "/tsam/api/technologies?limit=5&offset=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Header().Get("X-Total-Count"))
	assert.Len(t, decodeTechs(t, w), 5)

	w = request(r, http.MethodGet, "/tsam/api/technologies?limit=5&offset=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Header().Get("X-Total-Count"))
	assert.Len(t, decodeTechs(t, w), 2)

	w = request(r, http.MethodGet, "/tsam/api/technologies?limit=5&offset=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestList_Filters(t *testing.T) {
	_, db, r := setupAPI(t)
	seedTechnologies(t, db)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"substring ignores case", "name=JAVA&sort=name:asc", []string{"Java", "JavaScript"}},
		{"exact rating", "rating=5&sort=name:asc", []string{"Go", "React"}},
		{"combined", "name=a&rating=4&sort=name:asc", []string{"Java", "JavaScript"}},
		{"like wildcard is literal", "name=_", []string{"C_Sharp"}},
		{"percent is literal", "name=%25", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, http.MethodGet, "/tsam/api/technologies?"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var names []string
			for _, tech := range decodeTechs(t, w) {
				names = append(names, tech.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want), atoi(t, w.Header().Get("X-Total-Count")))
		})
	}
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	var n int
	require.NoError(t, json.Unmarshal([]byte(s), &n))
	return n
}

func TestList_InvalidCriteria(t *testing.T) {
	_, _, r := setupAPI(t)

	w := request(r, http.MethodGet, "/tsam/api/technologies?rating=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid search criteria", errorMessage(t, w))

	w = request(r, http.MethodGet, "/tsam/api/technologies?rating=9", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "rating")
}

func TestList_SortFallsBackForUnknownColumns(t *testing.T) {
	_, db, r := setupAPI(t)
	seedTechnologies(t, db)

	w := request(r, http.MethodGet, "/tsam/api/technologies?sort=name:desc&limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "React", decodeTechs(t, w)[0].Name)

	for _, sort := range []string{"id;drop table technologies:asc", "secret:asc", "name:sideways"} {
		w := request(r, http.MethodGet, "/tsam/api/technologies?sort="+strings.ReplaceAll(sort, " ", "%20"), nil)
		assert.Equal(t, http.StatusOK, w.Code, sort)
		assert.Equal(t, "7", w.Header().Get("X-Total-Count"), sort)
	}
}

func TestSalaryTrendFilters(t *testing.T) {
	_, db, r := setupAPI(t)
	require.NoError(t, db.Create(&[]domain.SalaryTrend{
		{Technology: "Go", MinimumExperience: 0, MaximumExperience: 2, Year: 2025},
		{Technology: "Go", MinimumExperience: 3, MaximumExperience: 5, Year: 2025},
		{Technology: "Java", MinimumExperience: 1, MaximumExperience: 3, Year: 2024},
		{Technology: "Rust", MinimumExperience: 2, MaximumExperience: 4, Year: 2025},
	}).Error)

	tests := []struct {
		query string
		want  string
	}{
		{"technologies=Go&technologies=Java", "3"},
		{"minimumExperience=1", "3"},
		{"maximumExperience=3", "2"},
		{"year=2025&technologies=Go", "2"},
	}
	for _, tt := range tests {
		w := request(r, http.MethodGet, "/tsam/api/salary-trends?"+tt.query, nil)
		require.Equal(t, http.StatusOK, w.Code, tt.query)
		assert.Equal(t, tt.want, w.Header().Get("X-Total-Count"), tt.query)
	}
}

func TestCallingReportDateRange(t *testing.T) {
	_, db, r := setupAPI(t)
	require.NoError(t, db.Create(&[]domain.CallingReport{
		{CandidateName: "Asha", Contact: "9876543210", CallDate: "2025-06-01"},
		{CandidateName: "Ravi", Contact: "9876543211", CallDate: "2025-06-10"},
		{CandidateName: "Neha", Contact: "9876543212", CallDate: "2025-06-20"},
	}).Error)

	w := request(r, http.MethodGet, "/tsam/api/calling-reports?fromDate=2025-06-05&toDate=2025-06-20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-Total-Count"))

	w = request(r, http.MethodGet, "/tsam/api/calling-reports?fromDate=06/05/2025", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreate(t *testing.T) {
	_, _, r := setupAPI(t)

	w := request(r, http.MethodPost, "/tsam/api/technologies", domain.Technology{Name: "Go", Rating: 5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Technology
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created.ID, 36)
	assert.Equal(t, "Go", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	w = request(r, http.MethodPost, "/tsam/api/technologies", domain.Technology{Name: "Go", Rating: 4})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Technology already exists", errorMessage(t, w))

	w = request(r, http.MethodPost, "/tsam/api/technologies", domain.Technology{Rating: 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name is required", errorMessage(t, w))

	withID := domain.Technology{Name: "Rust", Rating: 4}
	withID.ID = "3f1c6b0e-0000-4000-8000-000000000000"
	w = request(r, http.MethodPost, "/tsam/api/technologies", withID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id must not be set on create", errorMessage(t, w))
}

func TestGetUpdateDelete(t *testing.T) {
	_, db, r := setupAPI(t)
	tech := domain.Technology{Name: "Go", Rating: 5}
	require.NoError(t, db.Create(&tech).Error)

	w := request(r, http.MethodGet, "/tsam/api/technologies/"+tech.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	tech.Name = "Golang"
	tech.Rating = 4
	w = request(r, http.MethodPut, "/tsam/api/technologies", tech)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `"Technology updated successfully"`, w.Body.String())

	var stored domain.Technology
	require.NoError(t, db.First(&stored, "id = ?", tech.ID).Error)
	assert.Equal(t, "Golang", stored.Name)
	assert.Equal(t, 4, stored.Rating)
	assert.Equal(t, tech.CreatedAt.Unix(), stored.CreatedAt.Unix())

	w = request(r, http.MethodPut, "/tsam/api/technologies", domain.Technology{Name: "Go", Rating: 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "id is required", errorMessage(t, w))

	missing := domain.Technology{Name: "Go", Rating: 5}
	missing.ID = "missing"
	w = request(r, http.MethodPut, "/tsam/api/technologies", missing)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Technology not found", errorMessage(t, w))

	w = request(r, http.MethodDelete, "/tsam/api/technologies/"+tech.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Technology deleted successfully"}`, w.Body.String())

	w = request(r, http.MethodDelete, "/tsam/api/technologies/"+tech.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(r, http.MethodGet, "/tsam/api/technologies/"+tech.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdate_UniqueViolation(t *testing.T) {
	_, db, r := setupAPI(t)
	a := domain.Designation{Position: "Developer", IsActive: true}
	b := domain.Designation{Position: "Tester", IsActive: true}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	b.Position = "Developer"
	w := request(r, http.MethodPut, "/tsam/api/designations", b)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Designation already exists", errorMessage(t, w))
}

func TestUpdate_ClearsBooleans(t *testing.T) {
	_, db, r := setupAPI(t)
	d := domain.Designation{Position: "Developer", IsActive: true}
	require.NoError(t, db.Create(&d).Error)

	d.IsActive = false
	w := request(r, http.MethodPut, "/tsam/api/designations", d)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored domain.Designation
	require.NoError(t, db.First(&stored, "id = ?", d.ID).Error)
	assert.False(t, stored.IsActive)
}

func uploadRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndServeFile(t *testing.T) {
	_, _, r := setupAPI(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/tsam/api/upload/image", "logo.png", pngHeader))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, strings.HasPrefix(body.URL, "http://example.com/tsam/api/files/"), body.URL)

	path := strings.TrimPrefix(body.URL, "http://example.com")
	w = request(r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "logo.png")
	assert.Equal(t, pngHeader, w.Body.Bytes())
}

func TestUpload_Rejects(t *testing.T) {
	_, _, r := setupAPI(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/tsam/api/upload/brochure", "logo.png", pngHeader))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "not accepted for brochure uploads")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "/tsam/api/upload/video", "clip.png", pngHeader))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodPost, "/tsam/api/upload/image", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", errorMessage(t, w))
}

func TestSeed_Idempotent(t *testing.T) {
	api, db, r := setupAPI(t)
	ctx := context.Background()

	require.NoError(t, api.Seed(ctx))
	require.NoError(t, api.Seed(ctx))

	var n int64
	require.NoError(t, db.Model(&domain.Designation{}).Count(&n).Error)
	assert.EqualValues(t, 6, n)

	for _, res := range api.Resources() {
		w := request(r, http.MethodGet, "/tsam/api/"+res, nil)
		require.Equal(t, http.StatusOK, w.Code, res)
		assert.NotEqual(t, "0", w.Header().Get("X-Total-Count"), res)
	}
}

func TestIndex(t *testing.T) {
	_, _, r := setupAPI(t)

	w := request(r, http.MethodGet, "/tsam/api", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"resources":["designations","technologies","career-objectives","blog-topics","salary-trends","calling-reports"]}`, w.Body.String())

	w = request(r, http.MethodHead, "/tsam/api", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
