package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"ongon.org/internal/auth"
	"ongon.org/internal/config"
	"ongon.org/internal/ledger"
	"ongon.org/internal/lifecycle"
	"ongon.org/internal/welfare"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
	users   *authStore
	store   *welfareStore
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("database unavailable") }

func newTestAPI(t *testing.T, rp ReadyProbe) *apiClient {
	t.Helper()

	users := newAuthStore()
	signer, err := auth.NewSigner("test-secret", "ongon-test", nil)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	authSvc, err := auth.NewService(users, signer)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	store := newWelfareStore()
	svc, err := welfare.New(store, authSvc)
	if err != nil {
		t.Fatalf("welfare services: %v", err)
	}
	api, err := New(rp, "test", svc, authSvc,
		WithServerConfig(config.HTTPServer{MaxBodyBytes: 1 << 20, RateLimitBurst: 100, RateLimitPerSec: 100}),
		WithPagination(config.Pagination{DefaultPerPage: 20, MaxPerPage: 100}),
	)
	if err != nil {
		t.Fatalf("new api: %v", err)
	}

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		users:   users,
		store:   store,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, nil, headers)
}

// register signs a user up and returns its id and bearer header.
func (c *apiClient) register(email string) (string, map[string]string) {
	c.t.Helper()
	resp := c.post("/api/auth/register", map[string]any{
		"email":      email,
		"password":   "s3cret-pass",
		"first_name": "Rahim",
		"last_name":  "Uddin",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("unexpected register status: %d", resp.StatusCode)
	}
	payload := decode[map[string]any](c.t, resp)
	token, _ := payload["access_token"].(string)
	if token == "" {
		c.t.Fatalf("empty token issued")
	}
	user, _ := payload["user"].(map[string]any)
	id, _ := user["id"].(string)
	return id, map[string]string{"Authorization": "Bearer " + token}
}

func (c *apiClient) grant(userID string, role auth.RoleName) {
	c.t.Helper()
	if err := c.users.AssignRole(context.Background(), userID, role); err != nil {
		c.t.Fatalf("assign role: %v", err)
	}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectError(t *testing.T, resp *http.Response, code int, msg string) {
	t.Helper()
	if resp.StatusCode != code {
		t.Fatalf("expected status %d, got %d", code, resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Error != msg {
		t.Fatalf("expected error %q, got %q", msg, body.Error)
	}
	if body.RequestID == "" {
		t.Fatalf("expected request_id in error body")
	}
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})

	for _, path := range []string{"/healthz", "/api/health"} {
		resp := api.get(path, nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, resp.StatusCode)
		}
		body := decode[map[string]any](t, resp)
		if body["status"] != "healthy" || body["version"] != "test" {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
	}

	resp := api.get("/api/", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected info status: %d", resp.StatusCode)
	}
	info := decode[map[string]any](t, resp)
	if info["name"] != "ONGON API" {
		t.Fatalf("unexpected info: %v", info)
	}

	resp = api.get("/readyz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected ready status: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestReadyReportsFailingDatabase(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{DB: failingPinger{}})

	resp := api.get("/readyz", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "not_ready" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	expectError(t, api.get("/api/nowhere", nil, nil), http.StatusNotFound, "Not Found")
}

func TestRegisterLoginAndMe(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	id, headers := api.register("rahim@example.org")

	resp := api.get("/api/auth/me", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected me status: %d", resp.StatusCode)
	}
	me := decode[map[string]any](t, resp)
	if me["id"] != id || me["email"] != "rahim@example.org" {
		t.Fatalf("unexpected me body: %v", me)
	}
	roles, _ := me["roles"].([]any)
	if len(roles) != 1 || roles[0] != string(auth.RoleBeneficiary) {
		t.Fatalf("expected beneficiary role, got %v", me["roles"])
	}

	resp = api.post("/api/auth/login", map[string]any{"email": "rahim@example.org", "password": "s3cret-pass"}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
	session := decode[map[string]any](t, resp)
	if session["token_type"] != "Bearer" {
		t.Fatalf("unexpected token type: %v", session["token_type"])
	}

	resp = api.post("/api/auth/login", map[string]any{"email": "rahim@example.org", "password": "wrong-pass"}, nil)
	expectError(t, resp, http.StatusUnauthorized, "Invalid email or password")

	resp = api.post("/api/auth/register", map[string]any{
		"email":      "rahim@example.org",
		"password":   "another-pass",
		"first_name": "Rahim",
		"last_name":  "Uddin",
	}, nil)
	expectError(t, resp, http.StatusBadRequest, "Email already registered")
}

func TestRegisterValidatesBody(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})

	resp := api.post("/api/auth/register", map[string]any{
		"email":      "short@example.org",
		"password":   "short",
		"first_name": "Karim",
		"last_name":  "Mia",
	}, nil)
	expectError(t, resp, http.StatusBadRequest, "password must be at least 8")

	resp = api.post("/api/auth/register", map[string]any{
		"email":    "extra@example.org",
		"password": "long-enough",
		"nickname": "x",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if !strings.Contains(body.Error, "nickname") {
		t.Fatalf("expected unknown field in message, got %q", body.Error)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})

	expectError(t, api.post("/api/education/courses", map[string]any{"title": "Go"}, nil),
		http.StatusUnauthorized, "Not authenticated")

	resp := api.get("/api/auth/me", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header")
	}
	resp.Body.Close()
}

func TestCreateCourseRequiresEducator(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	_, headers := api.register("student@example.org")

	resp := api.post("/api/education/courses", map[string]any{"title": "Digital Literacy"}, headers)
	expectError(t, resp, http.StatusForbidden, "Insufficient permissions")
}

func TestDashboardRequiresReportAccess(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	_, headers := api.register("viewer@example.org")

	expectError(t, api.get("/api/analytics/dashboard", nil, headers), http.StatusForbidden, "Insufficient permissions")
}

func TestTrainingEnrollmentClosesAtCapacity(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	one := 1
	programID := api.store.addProgram(lifecycle.Window{Active: true, Capacity: &one})
	path := "/api/business/training-programs/" + strconv.FormatInt(programID, 10) + "/enroll"

	_, first := api.register("first@example.org")
	_, second := api.register("second@example.org")

	resp := api.post(path, nil, first)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	enrollment := decode[map[string]any](t, resp)
	if enrollment["program_id"] != float64(programID) {
		t.Fatalf("unexpected enrollment: %v", enrollment)
	}

	expectError(t, api.post(path, nil, second), http.StatusBadRequest, "Enrollment is closed for this program")
}

func TestTrainingEnrollmentRejectsDuplicate(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	programID := api.store.addProgram(lifecycle.Window{Active: true})
	path := "/api/business/training-programs/" + strconv.FormatInt(programID, 10) + "/enroll"
	_, headers := api.register("again@example.org")

	resp := api.post(path, nil, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	expectError(t, api.post(path, nil, headers), http.StatusBadRequest, "Already enrolled in this program")
}

func TestTrainingEnrollmentMissingProgram(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	_, headers := api.register("lost@example.org")

	expectError(t, api.post("/api/business/training-programs/999/enroll", nil, headers),
		http.StatusNotFound, "Training program not found")
	expectError(t, api.post("/api/business/training-programs/abc/enroll", nil, headers),
		http.StatusBadRequest, "invalid id")
}

func TestDonationFlowUpdatesProgress(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	projectID := api.store.addProject(welfare.Project{
		Title:        "Flood relief",
		TargetAmount: ledger.FromTaka(1000),
		Status:       lifecycle.StatusActive,
	})
	_, headers := api.register("donor@example.org")
	projectPath := "/api/projects/" + strconv.FormatInt(projectID, 10)

	donateHeaders := map[string]string{
		"Authorization":   headers["Authorization"],
		"Idempotency-Key": "donation-1",
	}
	resp := api.post(projectPath+"/donate", map[string]any{"amount": 500, "payment_method": "bkash"}, donateHeaders)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	donation := decode[map[string]any](t, resp)
	if donation["payment_status"] != "pending" || donation["amount"] != float64(500) {
		t.Fatalf("unexpected donation: %v", donation)
	}
	donationID := int64(donation["id"].(float64))

	resp = api.post(projectPath+"/donate", map[string]any{"amount": 500, "payment_method": "bkash"}, donateHeaders)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on replay, got %d", resp.StatusCode)
	}
	replay := decode[map[string]any](t, resp)
	if replay["id"] != donation["id"] {
		t.Fatalf("idempotent replay created a new donation: %v vs %v", replay["id"], donation["id"])
	}

	resp = api.post("/api/projects/donations/"+strconv.FormatInt(donationID, 10)+"/confirm", nil, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	confirmed := decode[map[string]any](t, resp)
	if confirmed["payment_status"] != "completed" {
		t.Fatalf("unexpected confirmation: %v", confirmed)
	}

	expectError(t, api.post("/api/projects/donations/"+strconv.FormatInt(donationID, 10)+"/confirm", nil, headers),
		http.StatusBadRequest, "Donation already processed")

	resp = api.get(projectPath, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	project := decode[map[string]any](t, resp)
	if project["raised_amount"] != float64(500) || project["progress_percentage"] != float64(50) {
		t.Fatalf("unexpected project totals: %v", project)
	}
}

func TestDonateRejectsInactiveProject(t *testing.T) {
	api := newTestAPI(t, ReadyProbe{})
	projectID := api.store.addProject(welfare.Project{
		Title:        "Closed drive",
		TargetAmount: ledger.FromTaka(1000),
		Status:       lifecycle.StatusCompleted,
	})
	_, headers := api.register("late@example.org")

	resp := api.post("/api/projects/"+strconv.FormatInt(projectID, 10)+"/donate", map[string]any{"amount": 100}, headers)
	expectError(t, resp, http.StatusBadRequest, "Project is not accepting donations")

	resp = api.post("/api/projects/"+strconv.FormatInt(projectID, 10)+"/donate", map[string]any{"amount": 0}, headers)
	expectError(t, resp, http.StatusBadRequest, "amount must be greater than 0")
}
