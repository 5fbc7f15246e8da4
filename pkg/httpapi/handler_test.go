package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-fieldtree/pkg/metrics"
	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/service"
	"github.com/goliatone/go-fieldtree/pkg/testsupport"
)

type writeResponse struct {
	ID          int64      `json:"id"`
	ContentType string     `json:"contentType"`
	Advanced    model.Tree `json:"advanced"`
	Persisted   bool       `json:"persisted"`
	Reason      string     `json:"reason"`
	Updates     int        `json:"updates"`
	Skipped     []string   `json:"skipped"`
}

const subtitleBody = `{"advanced":[{"fields":{"0":{"key":"field_subtitle","value":"hello"}}}]}`

func newTestHandler(t *testing.T, fns ...OptionFn) (http.Handler, *testsupport.Fixture) {
	t.Helper()
	f := testsupport.NewFixture(t)
	f.AddPosts(1)
	svc := service.New(
		service.WithRegistry(f.Registry),
		service.WithValueStore(f.Store),
		service.WithContent(f.Content),
	)
	return NewHandler(svc, fns...), f
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Result()
}

func decode(t *testing.T, res *http.Response) writeResponse {
	t.Helper()
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected JSON content-type, got %q", ct)
	}
	var payload writeResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func subtitle(tree model.Tree) any {
	for _, group := range tree {
		for _, field := range group.Fields {
			if field.Name == "subtitle" {
				return field.Value
			}
		}
	}
	return nil
}

func TestReadReturnsTree(t *testing.T) {
	h, f := newTestHandler(t)
	f.Store.Seed(1, model.StoredValues{"subtitle": "stored"})

	res := do(t, h, http.MethodGet, "/items/1/fields", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	payload := decode(t, res)
	if payload.ID != 1 || payload.ContentType != "post" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if got := subtitle(payload.Advanced); got != "stored" {
		t.Fatalf("expected stored subtitle, got %v", got)
	}
}

func TestReadEmptyTreeIsArray(t *testing.T) {
	h, _ := newTestHandler(t)

	res := do(t, h, http.MethodGet, "/items/1/fields", "", nil)
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["advanced"]) != "[]" {
		t.Fatalf("expected empty array, got %s", raw["advanced"])
	}
}

func TestReadErrors(t *testing.T) {
	h, _ := newTestHandler(t)

	if res := do(t, h, http.MethodGet, "/items/99/fields", "", nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown item, got %d", res.StatusCode)
	}
	if res := do(t, h, http.MethodGet, "/items/abc/fields", "", nil); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", res.StatusCode)
	}
}

func TestWritePersists(t *testing.T) {
	h, _ := newTestHandler(t)

	res := do(t, h, http.MethodPost, "/items/1/fields", subtitleBody, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	payload := decode(t, res)
	if !payload.Persisted || payload.Reason != "allowed" || payload.Updates != 1 {
		t.Fatalf("unexpected write result: %+v", payload)
	}
	if got := subtitle(payload.Advanced); got != "hello" {
		t.Fatalf("expected hello, got %v", got)
	}

	read := decode(t, do(t, h, http.MethodGet, "/items/1/fields", "", nil))
	if got := subtitle(read.Advanced); got != "hello" {
		t.Fatalf("expected hello on read, got %v", got)
	}
}

func TestWriteAcceptsBareGroupList(t *testing.T) {
	h, _ := newTestHandler(t)

	res := do(t, h, http.MethodPost, "/items/1/fields", `[{"fields":[{"key":"field_subtitle","value":"bare"}]}]`, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	if got := subtitle(decode(t, res).Advanced); got != "bare" {
		t.Fatalf("expected bare, got %v", got)
	}
}

func TestWriteBlockedByHeader(t *testing.T) {
	for _, value := range []string{"false", "0", "no", "OFF"} {
		t.Run(value, func(t *testing.T) {
			h, f := newTestHandler(t)

			res := do(t, h, http.MethodPost, "/items/1/fields", subtitleBody, map[string]string{DefaultPersistHeader: value})
			payload := decode(t, res)
			if payload.Persisted || payload.Reason != "flag" {
				t.Fatalf("expected flag refusal, got %+v", payload)
			}
			values, err := f.Store.Values(testsupport.Context(), 1)
			if err != nil {
				t.Fatalf("values: %v", err)
			}
			if len(values) != 0 {
				t.Fatalf("store should be untouched, got %v", values)
			}
		})
	}
}

func TestWriteDefaultAndGuard(t *testing.T) {
	h, _ := newTestHandler(t, WithPersistDefault(false))
	if payload := decode(t, do(t, h, http.MethodPost, "/items/1/fields", subtitleBody, map[string]string{DefaultPersistHeader: "true"})); payload.Persisted {
		t.Fatalf("disabled default should win over header, got %+v", payload)
	}

	guarded, _ := newTestHandler(t, WithGuard(func(r *http.Request) error {
		if r.Header.Get("X-Role") != "editor" {
			return errors.New("not an editor")
		}
		return nil
	}))
	if payload := decode(t, do(t, guarded, http.MethodPost, "/items/1/fields", subtitleBody, nil)); payload.Persisted {
		t.Fatalf("guard should veto, got %+v", payload)
	}
	if payload := decode(t, do(t, guarded, http.MethodPost, "/items/1/fields", subtitleBody, map[string]string{"X-Role": "editor"})); !payload.Persisted {
		t.Fatalf("guard should allow editors, got %+v", payload)
	}
}

func TestWriteCustomHeader(t *testing.T) {
	h, _ := newTestHandler(t, WithPersistHeader("X-Save"))
	payload := decode(t, do(t, h, http.MethodPost, "/items/1/fields", subtitleBody, map[string]string{"X-Save": "no"}))
	if payload.Persisted {
		t.Fatalf("custom header should block, got %+v", payload)
	}
}

func TestWriteBadBodies(t *testing.T) {
	h, _ := newTestHandler(t, WithMaxBodyBytes(256))

	cases := map[string]string{
		"malformed":      `{"advanced":`,
		"no advanced":    `{"groups":[]}`,
		"scalar groups":  `{"advanced":"x"}`,
		"scalar payload": `42`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			res := do(t, h, http.MethodPost, "/items/1/fields", body, nil)
			if res.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", res.StatusCode)
			}
		})
	}
}

func TestWriteBodyTooLarge(t *testing.T) {
	h, f := newTestHandler(t, WithMaxBodyBytes(256))

	body := `{"advanced":[` + strings.Repeat(`{"fields":[]},`, 40) + `{}]}`
	res := do(t, h, http.MethodPost, "/items/1/fields", body, nil)
	if res.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.StatusCode)
	}
	var payload errorResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error != "body exceeds 256 bytes" {
		t.Fatalf("unexpected error message %q", payload.Error)
	}
	values, err := f.Store.Values(testsupport.Context(), 1)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("store should be untouched, got %v", values)
	}
}

func TestAutosaveNeverPersists(t *testing.T) {
	h, f := newTestHandler(t)
	f.Store.Seed(1, model.StoredValues{"subtitle": "kept"})

	res := do(t, h, http.MethodPost, "/items/1/autosave", subtitleBody, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	payload := decode(t, res)
	if payload.Persisted || payload.Reason != "autosave" {
		t.Fatalf("expected autosave refusal, got %+v", payload)
	}
	if got := subtitle(payload.Advanced); got != "kept" {
		t.Fatalf("expected current tree, got %v", got)
	}
}

func TestOpenAPIDocument(t *testing.T) {
	h, _ := newTestHandler(t)

	res := do(t, h, http.MethodGet, "/schema/openapi.json", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
	var doc struct {
		OpenAPI    string                     `json:"openapi"`
		Paths      map[string]json.RawMessage `json:"paths"`
		Components struct {
			Schemas map[string]json.RawMessage `json:"schemas"`
		} `json:"components"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.OpenAPI == "" || doc.Paths["/items/{id}/fields"] == nil {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if doc.Components.Schemas["Group_group_article"] == nil {
		t.Fatalf("article group schema missing")
	}
}

func TestMetricsMounted(t *testing.T) {
	recorder := metrics.NewPrometheus()
	recorder.Degraded()
	h, _ := newTestHandler(t, WithMetricsHandler(recorder.Handler()))

	res := do(t, h, http.MethodGet, "/metrics", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}

	bare, _ := newTestHandler(t)
	if res := do(t, bare, http.MethodGet, "/metrics", "", nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics handler, got %d", res.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	if res := do(t, h, http.MethodGet, "/healthz", "", nil); res.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.StatusCode)
	}
}
