package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/lifecycle"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/services/matching"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/store/memstore"
	"github.com/Windi-Fikriyansyah/platfrom_be_marketplace/internal/utils"
)

const testSecret = "handler-test-secret"

type apiUser struct {
	id    uuid.UUID
	token string
}

type testAPI struct {
	t   *testing.T
	app *fiber.App
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	s := memstore.New()
	engine := lifecycle.New(s, nil)
	svc := matching.New(s, engine, nil, nil, matching.Options{}, nil)
	app := NewRouter(RouterDeps{
		Svc:            svc,
		Hub:            realtime.NewHub(nil),
		JWTSecret:      testSecret,
		AllowedOrigins: "http://localhost:3000",
	})
	return &testAPI{t: t, app: app}
}

func (a *testAPI) user(role models.Role) apiUser {
	a.t.Helper()
	id := uuid.New()
	tok, err := utils.SignJWT(testSecret, id.String(), string(role), 10)
	if err != nil {
		a.t.Fatalf("sign: %v", err)
	}
	return apiUser{id: id, token: tok}
}

// do sends body as JSON and decodes the JSON response into a map.
func (a *testAPI) do(method, path string, as *apiUser, body any) (int, map[string]any) {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+as.token)
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		a.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			a.t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw)
		}
	}
	return resp.StatusCode, out
}

func field(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = mm[p]
	}
	return cur
}

func projectBody() map[string]any {
	return map[string]any{
		"title":       "Landing page for a bakery",
		"description": "Single page site with menu, opening hours and a contact form",
		"category":    "web-development",
		"skills":      []string{"HTML", "CSS"},
		"budget":      map[string]any{"type": "fixed", "amount": 500},
		"is_remote":   true,
		// server-controlled, must be dropped
		"client_id":      uuid.NewString(),
		"proposal_count": 99,
		"view_count":     99,
	}
}

func proposalBody(projectID string, bid float64) map[string]any {
	return map[string]any{
		"project_id":   projectID,
		"bid_amount":   bid,
		"cover_letter": strings.Repeat("I build fast static sites for small shops. ", 2),
		"timeline":     "2 weeks",
	}
}

func TestEndToEndLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	client := api.user(models.RoleClient)
	f1 := api.user(models.RoleFreelancer)
	f2 := api.user(models.RoleFreelancer)

	code, res := api.do("POST", "/api/projects", &client, projectBody())
	if code != fiber.StatusCreated {
		t.Fatalf("create project = %d %v", code, res)
	}
	projectID, _ := field(res, "project", "id").(string)
	if field(res, "project", "client_id") != client.id.String() || field(res, "project", "proposal_count") != float64(0) {
		t.Fatalf("server fields not enforced: %v", res["project"])
	}

	code, res = api.do("POST", "/api/proposals", &f1, proposalBody(projectID, 450))
	if code != fiber.StatusCreated {
		t.Fatalf("submit A = %d %v", code, res)
	}
	propA, _ := field(res, "proposal", "id").(string)
	code, res = api.do("POST", "/api/proposals", &f2, proposalBody(projectID, 400))
	if code != fiber.StatusCreated {
		t.Fatalf("submit B = %d %v", code, res)
	}
	propB, _ := field(res, "proposal", "id").(string)

	code, res = api.do("PATCH", "/api/proposals/"+propA+"/status", &client, map[string]any{"status": "accepted"})
	if code != fiber.StatusOK {
		t.Fatalf("accept = %d %v", code, res)
	}
	if field(res, "project", "status") != "in-progress" || field(res, "project", "assigned_freelancer_id") != f1.id.String() {
		t.Fatalf("project after accept = %v", res["project"])
	}

	code, res = api.do("PATCH", "/api/proposals/"+propB+"/status", &f2, map[string]any{"status": "withdrawn"})
	if code != fiber.StatusConflict {
		t.Fatalf("withdraw B = %d %v", code, res)
	}
	if res["expected"] != "pending" || res["actual"] != "rejected" {
		t.Fatalf("conflict body = %v", res)
	}
	if field(res, "data", "proposal", "status") != "rejected" {
		t.Fatalf("conflict data = %v", res["data"])
	}

	code, res = api.do("DELETE", "/api/projects/"+projectID, &client, nil)
	if code != fiber.StatusBadRequest || res["success"] != false {
		t.Fatalf("delete in-progress = %d %v", code, res)
	}

	code, res = api.do("GET", "/api/projects/"+projectID, nil, nil)
	if code != fiber.StatusOK || field(res, "project", "status") != "in-progress" {
		t.Fatalf("get = %d %v", code, res)
	}

	code, res = api.do("PATCH", "/api/projects/"+projectID+"/status", &client, map[string]any{"status": "completed"})
	if code != fiber.StatusOK || field(res, "project", "status") != "completed" {
		t.Fatalf("complete = %d %v", code, res)
	}
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	client := api.user(models.RoleClient)
	freelancer := api.user(models.RoleFreelancer)

	code, res := api.do("POST", "/api/projects", nil, projectBody())
	if code != fiber.StatusUnauthorized || res["success"] != false {
		t.Fatalf("anonymous create = %d %v", code, res)
	}

	code, _ = api.do("POST", "/api/projects", &freelancer, projectBody())
	if code != fiber.StatusForbidden {
		t.Fatalf("freelancer create = %d", code)
	}

	bad := projectBody()
	bad["title"] = "x"
	code, res = api.do("POST", "/api/projects", &client, bad)
	if code != fiber.StatusBadRequest || field(res, "errors", "title") == nil {
		t.Fatalf("validation = %d %v", code, res)
	}

	code, _ = api.do("GET", "/api/projects/not-a-uuid", nil, nil)
	if code != fiber.StatusNotFound {
		t.Fatalf("malformed id = %d", code)
	}
	code, _ = api.do("GET", "/api/projects/"+uuid.NewString(), nil, nil)
	if code != fiber.StatusNotFound {
		t.Fatalf("missing id = %d", code)
	}

	code, res = api.do("GET", "/api/no-such-route", nil, nil)
	if code != fiber.StatusNotFound || res["success"] != false {
		t.Fatalf("unknown route = %d %v", code, res)
	}
	code, _ = api.do("DELETE", "/api/freelancer/unknown", &freelancer, nil)
	if code != fiber.StatusNotFound {
		t.Fatalf("unknown freelancer route = %d", code)
	}

	code, _ = api.do("GET", "/api/freelancer/dashboard/stats", &client, nil)
	if code != fiber.StatusForbidden {
		t.Fatalf("client on freelancer route = %d", code)
	}
}

func TestListAndDashboard(t *testing.T) {
	api := newTestAPI(t)
	client := api.user(models.RoleClient)
	freelancer := api.user(models.RoleFreelancer)

	var first string
	for i := 0; i < 3; i++ {
		body := projectBody()
		if i == 2 {
			body["skills"] = []string{"Go"}
		}
		code, res := api.do("POST", "/api/projects", &client, body)
		if code != fiber.StatusCreated {
			t.Fatalf("create %d = %d", i, code)
		}
		if i == 0 {
			first, _ = field(res, "project", "id").(string)
		}
	}

	code, res := api.do("GET", "/api/projects?limit=2&page=1", nil, nil)
	if code != fiber.StatusOK {
		t.Fatalf("list = %d", code)
	}
	if got := len(res["projects"].([]any)); got != 2 {
		t.Fatalf("page size = %d", got)
	}
	if field(res, "pagination", "totalProjects") != float64(3) || field(res, "pagination", "hasNextPage") != true {
		t.Fatalf("pagination = %v", res["pagination"])
	}

	code, res = api.do("GET", "/api/projects?skills=go&skills=rust", nil, nil)
	if code != fiber.StatusOK || len(res["projects"].([]any)) != 1 {
		t.Fatalf("skills filter = %d %v", code, res["pagination"])
	}

	code, res = api.do("GET", "/api/categories", nil, nil)
	if code != fiber.StatusOK || len(res["data"].([]any)) != 1 {
		t.Fatalf("categories = %d %v", code, res)
	}

	if code, res := api.do("POST", "/api/proposals", &freelancer, proposalBody(first, 300)); code != fiber.StatusCreated {
		t.Fatalf("submit = %d %v", code, res)
	}
	code, res = api.do("GET", "/api/freelancer/proposals?status=pending", &freelancer, nil)
	if code != fiber.StatusOK || len(res["proposals"].([]any)) != 1 {
		t.Fatalf("my proposals = %d %v", code, res)
	}
	code, res = api.do("GET", "/api/freelancer/dashboard/stats", &freelancer, nil)
	if code != fiber.StatusOK || field(res, "data", "pending") != float64(1) {
		t.Fatalf("stats = %d %v", code, res)
	}
	code, res = api.do("GET", "/api/projects/"+first+"/proposals", &client, nil)
	if code != fiber.StatusOK || len(res["proposals"].([]any)) != 1 {
		t.Fatalf("project proposals = %d %v", code, res)
	}
}
