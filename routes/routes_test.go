package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/podstream-backend/config"
	"github.com/vnkhanh/podstream-backend/controllers"
	"github.com/vnkhanh/podstream-backend/middleware"
	"github.com/vnkhanh/podstream-backend/models"
	"github.com/vnkhanh/podstream-backend/repository"
	"github.com/vnkhanh/podstream-backend/services"
	"github.com/vnkhanh/podstream-backend/utils"
	"github.com/vnkhanh/podstream-backend/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
	cfg    config.Config
}

type unreachableStore struct{}

func (unreachableStore) Ensure(context.Context) (repository.Store, error) {
	return nil, errors.New("connection refused")
}

func (unreachableStore) Health(context.Context) error { return errors.New("connection refused") }

type option func(*config.Config, *Deps)

func newTestServer(t *testing.T, opts ...option) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	log := utils.DiscardLogger()
	cfg := config.Config{
		AppEnv:         "test",
		StoreDriver:    config.DriverMemory,
		JWTSecret:      "test-secret",
		AllowedOrigins: []string{"http://localhost:5173"},
		MaxBodyBytes:   4718592,
		MaxUploadBytes: 100 << 20,
		UploadsDir:     t.TempDir(),
	}
	db := config.NewDatabaseWithStore(store, log)
	hub := ws.NewHub(log)
	src := services.StaticStore(store)

	auth := services.NewAuthService(src, cfg.JWTSecret, log)
	h := &controllers.Handler{
		Auth:      auth,
		Catalog:   services.NewCatalogService(src, hub, log),
		Accounts:  services.NewAccountService(src, log),
		Analytics: services.NewAnalyticsService(src, log),
		Uploads:   services.NewUploadService(services.CloudinaryCredentials{}, services.NewLocalUploader(cfg.UploadsDir, ""), nil, log),
		DB:        db,
		Hub:       hub,
		Log:       log,
	}
	deps := Deps{Handler: h, DB: db, WS: ws.NewHandler(hub, cfg.AllowedOrigins, log), Log: log}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	h.Config = cfg
	return &testServer{router: SetupRouter(deps), store: store, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", middleware.SessionCookie)
	return nil
}

func (s *testServer) signIn(t *testing.T, username, email string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/sign-up", map[string]string{
		"username": username, "email": email, "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-up: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/api/v1/sign-in", map[string]string{"email": email, "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func TestSignUpSignInAndUserDetails(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/sign-up", map[string]string{
		"username": "alice", "email": "Alice@Example.com", "password": "secret123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/sign-in", map[string]string{"email": "alice@example.com", "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Fatal("expected an HttpOnly session cookie")
	}
	if body := decode(t, rec); body["message"] != "sign-in successfully" || body["username"] != "alice" {
		t.Fatalf("unexpected sign-in body: %v", body)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/check-cookie", nil, cookie)
	if body := decode(t, rec); body["message"] != true {
		t.Fatalf("expected check-cookie true, got %v", body)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/user-details", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := decode(t, rec)["data"].(map[string]any)
	if data["email"] != "alice@example.com" {
		t.Fatalf("expected normalized email, got %v", data["email"])
	}
	if _, leaked := data["password"]; leaked {
		t.Fatal("password must not be serialized")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	s := newTestServer(t)
	s.signIn(t, "bobby1", "bob@example.com")

	rec := s.do(t, http.MethodPost, "/api/v1/sign-in", map[string]string{"email": "bob@example.com", "password": "nope123"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSessionRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/user-details", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/v1/user-details", nil, &http.Cookie{Name: middleware.SessionCookie, Value: "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/api/v1/check-cookie", nil, &http.Cookie{Name: middleware.SessionCookie, Value: "garbage"})
	if body := decode(t, rec); body["message"] != false {
		t.Fatalf("expected check-cookie false, got %v", body)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if c := sessionCookie(t, rec); c.MaxAge >= 0 {
		t.Fatalf("expected an expired cookie, got MaxAge %d", c.MaxAge)
	}
}

func TestPodcastLifecycle(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, "carol1", "carol@example.com")

	rec := s.do(t, http.MethodPost, "/api/v1/add-podcast", map[string]any{
		"title":       "Go Weekly",
		"description": "News from the Go community",
		"category":    "Technology",
		"tags":        []string{"go", "Go", "news"},
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("add-podcast: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	podcast, _ := decode(t, rec)["podcast"].(map[string]any)
	id, _ := podcast["id"].(string)
	if id == "" {
		t.Fatalf("expected podcast id, got %v", podcast)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/get-podcasts", nil)
	body := decode(t, rec)
	if body["total"] != float64(1) {
		t.Fatalf("expected one podcast, got %v", body)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/get-podcast/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get-podcast: expected 200, got %d", rec.Code)
	}
	data, _ := decode(t, rec)["data"].(map[string]any)
	if data["views"] != float64(1) {
		t.Fatalf("expected views 1, got %v", data["views"])
	}

	rec = s.do(t, http.MethodPost, "/api/v1/like-podcast/"+id, nil, cookie)
	if body := decode(t, rec); body["message"] != "Podcast liked" || body["liked"] != true {
		t.Fatalf("unexpected like body: %v", body)
	}
	rec = s.do(t, http.MethodPost, "/api/v1/like-podcast/"+id, nil, cookie)
	if body := decode(t, rec); body["message"] != "Podcast unliked" || body["liked"] != false {
		t.Fatalf("unexpected unlike body: %v", body)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/add-comment/"+id, map[string]string{"text": "great episode"}, cookie)
	if body := decode(t, rec); body["message"] != "Comment added successfully" {
		t.Fatalf("unexpected comment body: %v", body)
	}
	rec = s.do(t, http.MethodPost, "/api/v1/add-comment/"+id, map[string]string{"text": "   "}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a blank comment, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/get-user-podcasts", nil, cookie)
	if items, _ := decode(t, rec)["data"].([]any); len(items) != 1 {
		t.Fatalf("expected one owned podcast, got %v", items)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/categories", nil)
	if items, _ := decode(t, rec)["data"].([]any); len(items) != 1 {
		t.Fatalf("expected one category, got %v", items)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/search?q=weekly", nil)
	if items, _ := decode(t, rec)["data"].([]any); len(items) != 1 {
		t.Fatalf("expected one search hit, got %v", items)
	}
}

func TestAddPodcastValidation(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, "david1", "dave@example.com")

	rec := s.do(t, http.MethodPost, "/api/v1/add-podcast", map[string]any{"title": "Go"}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, "/api/v1/get-podcast/not-an-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestFollowAndProfile(t *testing.T) {
	s := newTestServer(t)
	erin := s.signIn(t, "erin01", "erin@example.com")
	s.signIn(t, "frank1", "frank@example.com")

	frank, err := s.store.Users().FindByUsername(context.Background(), "frank1")
	if err != nil {
		t.Fatalf("find frank: %v", err)
	}

	rec := s.do(t, http.MethodPost, "/api/v1/follow/"+frank.ID, nil, erin)
	if body := decode(t, rec); body["following"] != true {
		t.Fatalf("expected following, got %v", body)
	}

	rec = s.do(t, http.MethodPut, "/api/v1/profile", map[string]any{
		"bio":         "podcaster",
		"dateOfBirth": "1990-05-01",
		"preferences": map[string]any{"theme": "dark"},
	}, erin)
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPut, "/api/v1/profile", map[string]any{"dateOfBirth": "yesterday"}, erin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad date, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/profile", nil, erin)
	user, _ := decode(t, rec)["user"].(map[string]any)
	following, _ := user["following"].([]any)
	if len(following) != 1 {
		t.Fatalf("expected one followed user, got %v", user["following"])
	}
	prefs, _ := user["preferences"].(map[string]any)
	if prefs["theme"] != "dark" || prefs["emailNotifications"] != true || prefs["language"] != "en" {
		t.Fatalf("expected only the theme to change, got %v", prefs)
	}
	if liked, ok := user["likedPodcasts"].([]any); !ok || len(liked) != 0 {
		t.Fatalf("expected an empty liked list, got %v", user["likedPodcasts"])
	}
}

func TestPlatformAnalyticsAdminOnly(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, "ginaa1", "gina@example.com")

	rec := s.do(t, http.MethodGet, "/api/v1/analytics/platform", nil, cookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decode(t, rec); body["message"] != "Access denied. Admin only." {
		t.Fatalf("unexpected message: %v", body)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/analytics/trending?period=1d", nil)
	if body := decode(t, rec); body["period"] != "1d" {
		t.Fatalf("unexpected trending body: %v", body)
	}
}

func TestPlatformAnalyticsForAdmin(t *testing.T) {
	s := newTestServer(t)
	h := services.NewAuthService(services.StaticStore(s.store), s.cfg.JWTSecret, utils.DiscardLogger())
	if _, err := h.SeedAdmin(context.Background(), "root@example.com", "root", "secret123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	rec := s.do(t, http.MethodPost, "/api/v1/sign-in", map[string]string{"email": "root@example.com", "password": "secret123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin sign-in: %d %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["role"] != string(models.RoleAdmin) {
		t.Fatalf("expected admin role, got %v", body["role"])
	}

	rec = s.do(t, http.MethodGet, "/api/v1/analytics/platform", nil, sessionCookie(t, rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, ok := decode(t, rec)["overview"]; !ok {
		t.Fatal("expected overview in platform analytics")
	}
}

func TestNotFoundListsEndpoints(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["error"] != "Not Found" || body["path"] != "/api/v1/nope" {
		t.Fatalf("unexpected body: %v", body)
	}
	list, _ := body["availableEndpoints"].([]any)
	if len(list) != len(s.router.Routes()) {
		t.Fatalf("expected every registered route, got %d of %d", len(list), len(s.router.Routes()))
	}
	listed := map[string]bool{}
	for _, e := range list {
		listed[e.(string)] = true
	}
	for _, want := range []string{
		"GET /api/v1/search",
		"PUT /api/v1/profile",
		"GET /api/v1/category/:name",
		"GET /uploads/*path",
		"GET /metrics",
	} {
		if !listed[want] {
			t.Errorf("missing %q in %v", want, list)
		}
	}
	if listed["GET /api/v1/category/:cat"] {
		t.Error("listed a route that is not registered")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/sign-up", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["receivedMethod"] != "GET" {
		t.Fatalf("unexpected body: %v", body)
	}
	allowed, _ := body["allowedMethods"].([]any)
	found := false
	for _, m := range allowed {
		if m == "POST" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected POST among allowed methods, got %v", allowed)
	}
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config, _ *Deps) { cfg.MaxBodyBytes = 64 })

	payload := map[string]string{"username": strings.Repeat("x", 200), "email": "a@b.co", "password": "secret123"}
	rec := s.do(t, http.MethodPost, "/api/v1/sign-up", payload)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["error"] != "Payload Too Large" || body["maxSize"] != "64B" {
		t.Fatalf("unexpected body: %v", body)
	}

	// Without a declared length the reader cuts the body off.
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sign-up", strings.NewReader(string(data)))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for a streamed body, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["maxSize"] != "64B" {
		t.Fatalf("expected the applied limit, got %v", body)
	}
}

func TestBodyLimitReportsRouteCeiling(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config, _ *Deps) { cfg.MaxUploadBytes = 1536 })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/add-podcast", strings.NewReader(strings.Repeat("x", 2048)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["maxSize"] != "1.5KB" || !strings.Contains(body["message"].(string), "1.5KB") {
		t.Fatalf("expected the add-podcast ceiling, got %v", body)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sign-in", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected echoed origin, got %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty preflight body, got %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff, got %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config, d *Deps) {
		cfg.RateLimitEnabled = true
		d.Limiters = middleware.Limiters{
			Global: middleware.NewMemoryLimiter(middleware.Tier{Name: "global", Limit: 2, Window: time.Hour}),
		}
	})
	for i := 0; i < 2; i++ {
		if rec := s.do(t, http.MethodGet, "/api/v1/health", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := s.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "Too Many Requests" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["message"] != "Podstream API is running!" || body["jwt_secret_exists"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestDatabaseUnavailable(t *testing.T) {
	s := newTestServer(t, func(_ *config.Config, d *Deps) {
		d.DB = unreachableStore{}
		d.Handler.DB = unreachableStore{}
	})

	rec := s.do(t, http.MethodGet, "/api/v1/get-podcasts", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body := decode(t, rec); body["error"] != "Database connection failed" {
		t.Fatalf("unexpected body: %v", body)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 health, got %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "degraded" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestUploadEndpointsWithoutCloudinary(t *testing.T) {
	s := newTestServer(t)
	cookie := s.signIn(t, "hanks1", "hank@example.com")

	rec := s.do(t, http.MethodPost, "/api/v1/get-upload-url", map[string]string{"fileType": "audio"}, cookie)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if body := decode(t, rec); body["useLocal"] != true {
		t.Fatalf("unexpected body: %v", body)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/upload-file", map[string]string{}, cookie)
	body := decode(t, rec)
	if body["fileType"] != "image" {
		t.Fatalf("expected default image type, got %v", body)
	}
	if url, _ := body["url"].(string); !strings.HasPrefix(url, models.PlaceholderImagePrefix) {
		t.Fatalf("expected placeholder url, got %q", url)
	}
}

func TestServeUploadRanges(t *testing.T) {
	s := newTestServer(t)
	dir := filepath.Join(s.cfg.UploadsDir, "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ep.mp3"), []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := s.do(t, http.MethodGet, "/uploads/audio/ep.mp3", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "0123456789" {
		t.Fatalf("expected full file, got %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=31536000" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Fatalf("unexpected Content-Type %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/uploads/audio/ep.mp3", nil)
	req.Header.Set("Range", "bytes=2-5")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusPartialContent || rec.Body.String() != "2345" {
		t.Fatalf("expected 206 \"2345\", got %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Fatalf("unexpected Content-Range %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/uploads/audio/ep.mp3", nil)
	req.Header.Set("Range", "bytes=50-60")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("expected 416, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/uploads/audio/missing.mp3", nil)
	if body := decode(t, rec); rec.Code != http.StatusNotFound || body["error"] != "File not found" {
		t.Fatalf("expected 404 File not found, got %d %v", rec.Code, body)
	}

	// A file beside the uploads root stays out of reach.
	outside := filepath.Join(filepath.Dir(s.cfg.UploadsDir), "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec = s.do(t, http.MethodGet, "/uploads/../secret.txt", nil)
	if rec.Code != http.StatusNotFound || rec.Body.String() == "secret" {
		t.Fatalf("expected 404 for traversal, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestServeUploadDottedName(t *testing.T) {
	s := newTestServer(t)
	dir := filepath.Join(s.cfg.UploadsDir, "audio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a..b.mp3"), []byte("episode"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := s.do(t, http.MethodGet, "/uploads/audio/a..b.mp3", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "episode" {
		t.Fatalf("expected the dotted file, got %d %q", rec.Code, rec.Body.String())
	}
}
