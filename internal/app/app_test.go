package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/restws/internal/config"
	"github.com/ehr/restws/internal/platform/rest"
)

const (
	patientUUID  = "da7f524f-27ce-4bb2-86d6-6d1d05312bd5"
	providerUUID = "ba1b19c2-3ed6-4cb7-b818-9ba5f1b0a0c2"
	initialType  = "61ae96f4-6afe-4351-b6f8-cd4fc383cce1"
)

const encounterPayload = `{
	"location": "3890",
	"encounterType": "` + initialType + `",
	"encounterDatetime": "2011-01-15",
	"patient": "` + patientUUID + `",
	"provider": "` + providerUUID + `"
}`

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		Env:               "test",
		Store:             config.StoreMemory,
		MaxResultsDefault: 50,
		DefaultUser:       "admin",
		LoadFixtures:      true,
		BodyLimit:         "1M",
		RequestTimeout:    5 * time.Second,
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func do(a *App, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func countEncounters(t *testing.T, a *App) int {
	t.Helper()
	rec := do(a, http.MethodGet, "/ws/rest/v1/encounter?q=100-8&v=ref", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d: %s", rec.Code, rec.Body.String())
	}
	var page []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	return len(page)
}

func createEncounter(t *testing.T, a *App, headers ...string) string {
	t.Helper()
	rec := do(a, http.MethodPost, "/ws/rest/v1/encounter", encounterPayload, headers...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	id, _ := decode(t, rec)["uuid"].(string)
	if id == "" {
		t.Fatal("created encounter has no uuid")
	}
	return id
}

func nestedUUID(obj map[string]interface{}, key string) string {
	nested, _ := obj[key].(map[string]interface{})
	id, _ := nested["uuid"].(string)
	return id
}

func TestNew_RegistersEveryResource(t *testing.T) {
	a := newTestApp(t)

	want := []string{
		"concept", "conceptdescription", "encounter", "encountertype", "location",
		"obs", "patient", "person", "role", "user",
	}
	if got := a.Registry.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if err := a.Registry.Register(a.Registry.Resources()[0], 9); !errors.Is(err, rest.ErrRegistryFrozen) {
		t.Errorf("Register() after New = %v, want ErrRegistryFrozen", err)
	}
	for _, res := range a.Registry.Resources() {
		if err := rest.CheckDescriptions(res); err != nil {
			t.Errorf("CheckDescriptions(%s) error: %v", res.Name(), err)
		}
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Store = "sqlite"
	if _, err := New(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected an error for an unknown store")
	}
}

func TestLoadFixtures_Idempotent(t *testing.T) {
	a := newTestApp(t)
	n, err := a.LoadFixtures(context.Background())
	if err != nil {
		t.Fatalf("LoadFixtures() error: %v", err)
	}
	if n != 0 {
		t.Errorf("second load created %d records, want 0", n)
	}
}

func TestScenario_CreateEncounter(t *testing.T) {
	a := newTestApp(t)

	before := countEncounters(t, a)
	id := createEncounter(t, a)
	if after := countEncounters(t, a); after != before+1 {
		t.Errorf("encounter count = %d, want %d", after, before+1)
	}

	rec := do(a, http.MethodGet, "/ws/rest/v1/encounter/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode(t, rec)
	if nestedUUID(got, "encounterType") != initialType {
		t.Errorf("encounterType = %v, want %s", got["encounterType"], initialType)
	}
	if nestedUUID(got, "patient") != patientUUID {
		t.Errorf("patient = %v, want %s", got["patient"], patientUUID)
	}
	if nestedUUID(got, "location") != "3890" {
		t.Errorf("location = %v, want 3890", got["location"])
	}
	if got["encounterDatetime"] != "2011-01-15T00:00:00.000+0000" {
		t.Errorf("encounterDatetime = %v", got["encounterDatetime"])
	}
	if got["display"] != "ADULTINITIAL 15/01/2011" {
		t.Errorf("display = %v", got["display"])
	}
}

func TestScenario_PartialUpdate(t *testing.T) {
	a := newTestApp(t)
	id := createEncounter(t, a)
	path := "/ws/rest/v1/encounter/" + id

	before := decode(t, do(a, http.MethodGet, path+"?v=full", ""))

	rec := do(a, http.MethodPost, path, `{"encounterDatetime":"2024-01-01 10:00:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	after := decode(t, do(a, http.MethodGet, path+"?v=full", ""))

	if after["encounterDatetime"] != "2024-01-01T10:00:00.000+0000" {
		t.Errorf("encounterDatetime = %v", after["encounterDatetime"])
	}
	for key, b := range before {
		switch key {
		case "encounterDatetime", "display", "auditInfo":
			continue
		}
		if !reflect.DeepEqual(b, after[key]) {
			t.Errorf("%s changed: %v -> %v", key, b, after[key])
		}
	}
}

func TestScenario_CustomRepresentation(t *testing.T) {
	a := newTestApp(t)
	id := createEncounter(t, a)

	rec := do(a, http.MethodGet, "/ws/rest/v1/encounter/"+id+"?v=custom:(uuid,display)", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve status = %d: %s", rec.Code, rec.Body.String())
	}
	obj := rest.NewSimpleObject()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := obj.Keys(); !reflect.DeepEqual(got, []string{"uuid", "display"}) {
		t.Errorf("Keys() = %v, want [uuid display]", got)
	}
}

func TestScenario_CallerStampsAudit(t *testing.T) {
	a := newTestApp(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "clerk"}).
		SignedString([]byte("upstream-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	id := createEncounter(t, a, "Authorization", "Bearer "+token)

	got := decode(t, do(a, http.MethodGet, "/ws/rest/v1/encounter/"+id+"?v=full", ""))
	audit, _ := got["auditInfo"].(map[string]interface{})
	if audit["creator"] != "clerk" {
		t.Errorf("creator = %v, want clerk", audit["creator"])
	}

	rec := do(a, http.MethodGet, "/ws/rest/v1/encounter/"+id, "", "Authorization", "Basic xyz")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("malformed authorization status = %d, want 401", rec.Code)
	}
}

func TestScenario_ErrorBody(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodGet, "/ws/rest/v1/encounter/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decode(t, rec)
	detail, _ := body["error"].(map[string]interface{})
	if detail["code"] != string(rest.CodeNotFound) {
		t.Errorf("code = %v", detail["code"])
	}

	rec = do(a, http.MethodDelete, "/ws/rest/v1/patient/"+patientUUID+"?purge=true", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("purge of an unreferenced patient status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestScenario_PurgeBlockedByEncounter(t *testing.T) {
	a := newTestApp(t)
	createEncounter(t, a)

	rec := do(a, http.MethodDelete, "/ws/rest/v1/location/3890?purge=true", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	detail, _ := decode(t, rec)["error"].(map[string]interface{})
	if detail["code"] != string(rest.CodeDependencyConflict) {
		t.Errorf("code = %v", detail["code"])
	}
}

func TestPublicEndpoints(t *testing.T) {
	a := newTestApp(t)

	rec := do(a, http.MethodGet, "/health", "", "Authorization", "garbage")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if decode(t, rec)["store"] != "memory" {
		t.Errorf("health body = %s", rec.Body.String())
	}

	do(a, http.MethodGet, "/ws/rest/v1/location/3890", "")
	rec = do(a, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "restws_operations_total") {
		t.Error("metrics output is missing the operation counter")
	}
}

func TestGlobalPropertyBoundsSearch(t *testing.T) {
	a := newTestApp(t)
	a.Properties.Set(rest.GlobalPropertyMaxResults, "1")

	rec := do(a, http.MethodGet, "/ws/rest/v1/location?q=o", "")
	var page []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("page size = %d, want 1", len(page))
	}
}
