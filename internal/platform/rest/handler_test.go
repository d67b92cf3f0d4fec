package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProps map[string]int

func (p staticProps) Int(key string) (int, bool) {
	v, ok := p[key]
	return v, ok
}

type recorded struct{ resource, op, code string }

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (r *fakeRecorder) RecordOperation(resource, op, code string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recorded{resource, op, code})
}

func (r *fakeRecorder) last() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[len(r.seen)-1]
}

type server struct {
	env  *testEnv
	e    *echo.Echo
	rec  *fakeRecorder
	prop staticProps
}

func newServer() *server {
	env := newTestEnv()
	s := &server{env: env, e: echo.New(), rec: &fakeRecorder{}, prop: staticProps{}}
	NewDispatcher(env.reg, s.prop, 50, s.rec).RegisterRoutes(s.e.Group(URLPrefix + "/" + APIVersion))
	return s
}

func (s *server) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeResponseObject(t *testing.T, rec *httptest.ResponseRecorder) *SimpleObject {
	t.Helper()
	obj := NewSimpleObject()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), obj), rec.Body.String())
	return obj
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code     string            `json:"code"`
			Property string            `json:"property"`
			Metadata map[string]string `json:"metadata"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error.Code
}

func TestDispatcher_CreateRetrieve(t *testing.T) {
	s := newServer()

	rec := s.do(http.MethodPost, "/ws/rest/v1/thing", `{"name":"widget","count":2,"owner":{"uuid":"o-1"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeResponseObject(t, rec)
	id, _ := created.Get("uuid")

	rec = s.do(http.MethodGet, "/ws/rest/v1/thing/"+id.(string)+"?v=custom:(uuid,display)", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"uuid":"`+id.(string)+`","display":"widget"}`, strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, recorded{"thing", OpRetrieve, "OK"}, s.rec.last())
}

func TestDispatcher_ErrorStatuses(t *testing.T) {
	s := newServer()
	rec := s.do(http.MethodPost, "/ws/rest/v1/thing", `{"name":"widget"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decodeResponseObject(t, rec).Get("uuid")
	s.env.things.blocked[id.(string)] = true

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   Code
	}{
		{"unknown resource", http.MethodGet, "/ws/rest/v1/nope/1", "", http.StatusNotFound, CodeUnknownResource},
		{"missing entity", http.MethodGet, "/ws/rest/v1/thing/missing", "", http.StatusNotFound, CodeNotFound},
		{"malformed representation", http.MethodGet, "/ws/rest/v1/thing/x?v=custom:(uuid", "", http.StatusBadRequest, CodeMalformedSpecification},
		{"unknown custom property", http.MethodGet, "/ws/rest/v1/thing/" + id.(string) + "?v=custom:(colour)", "", http.StatusBadRequest, CodeUnknownProperty},
		{"unknown payload property", http.MethodPost, "/ws/rest/v1/thing", `{"name":"a","colour":"red"}`, http.StatusBadRequest, CodeUnknownProperty},
		{"conversion failure", http.MethodPost, "/ws/rest/v1/thing", `{"name":"a","count":"lots"}`, http.StatusBadRequest, CodeConversionFailed},
		{"validation failure", http.MethodPost, "/ws/rest/v1/thing", `{"count":1}`, http.StatusBadRequest, CodeValidationFailed},
		{"body not an object", http.MethodPost, "/ws/rest/v1/thing", `[1,2]`, http.StatusBadRequest, CodeValidationFailed},
		{"purge with dependents", http.MethodDelete, "/ws/rest/v1/thing/" + id.(string) + "?purge=true", "", http.StatusConflict, CodeDependencyConflict},
		{"delete without reason", http.MethodDelete, "/ws/rest/v1/thing/" + id.(string), "", http.StatusBadRequest, CodeValidationFailed},
		{"search not supported", http.MethodGet, "/ws/rest/v1/owner?q=a", "", http.StatusBadRequest, CodeOperationNotSupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, string(tt.code), errorCode(t, rec))
		})
	}
}

func TestDispatcher_DeleteAndPurge(t *testing.T) {
	s := newServer()
	rec := s.do(http.MethodPost, "/ws/rest/v1/thing", `{"name":"widget"}`)
	id, _ := decodeResponseObject(t, rec).Get("uuid")
	path := "/ws/rest/v1/thing/" + id.(string)

	rec = s.do(http.MethodDelete, path+"?reason=duplicate", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodDelete, path+"?reason=again", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, path, "")
	voided, _ := decodeResponseObject(t, rec).Get("voided")
	assert.Equal(t, true, voided)

	rec = s.do(http.MethodDelete, path+"?purge=true", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, recorded{"thing", OpPurge, "OK"}, s.rec.last())

	rec = s.do(http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDispatcher_SearchPaging(t *testing.T) {
	s := newServer()
	for i := 0; i < 6; i++ {
		rec := s.do(http.MethodPost, "/ws/rest/v1/thing", `{"name":"widget"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var page []map[string]interface{}
	rec := s.do(http.MethodGet, "/ws/rest/v1/thing?q=widg&v=ref&limit=4&startIndex=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page, 4)
	assert.Equal(t, "thing-002", page[0]["uuid"])

	s.prop[GlobalPropertyMaxResults] = 2
	rec = s.do(http.MethodGet, "/ws/rest/v1/thing?q=widg&limit=10", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page, 2, "the global property bounds the page")

	rec = s.do(http.MethodGet, "/ws/rest/v1/thing", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestDispatcher_UpdatePartial(t *testing.T) {
	s := newServer()
	rec := s.do(http.MethodPost, "/ws/rest/v1/thing", `{"name":"widget","count":9,"when":"2011-01-15"}`)
	id, _ := decodeResponseObject(t, rec).Get("uuid")

	rec = s.do(http.MethodPost, "/ws/rest/v1/thing/"+id.(string), `{"when":"2024-01-01 10:00:00"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	obj := decodeResponseObject(t, rec)
	when, _ := obj.Get("when")
	count, _ := obj.Get("count")
	assert.Equal(t, "2024-01-01T10:00:00.000+0000", when)
	assert.Equal(t, json.Number("9"), count)
}

func TestMaxResults(t *testing.T) {
	assert.Equal(t, 50, MaxResults(nil, 50))
	assert.Equal(t, 50, MaxResults(staticProps{GlobalPropertyMaxResults: -1}, 50))
	assert.Equal(t, 7, MaxResults(staticProps{GlobalPropertyMaxResults: 7}, 50))
	assert.Equal(t, 50, MaxResults(nil, 0))
}
