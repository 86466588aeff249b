package httpapi_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"errors"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/BrandonDHaskell/registre/internal/httpapi"
	"github.com/BrandonDHaskell/registre/internal/metrics"
	"github.com/BrandonDHaskell/registre/internal/register/draft"
	"github.com/BrandonDHaskell/registre/internal/register/persist"
	"github.com/BrandonDHaskell/registre/internal/register/service"
	"github.com/BrandonDHaskell/registre/internal/register/signature"
	"github.com/BrandonDHaskell/registre/internal/register/store/storetest"
	"github.com/BrandonDHaskell/registre/internal/register/types"
)

var testNow = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	ts  *httptest.Server
	mem *storetest.Store
}

// newTestServer wires up the full dependency graph over an in-memory store
// and returns an httptest.Server whose URL can be hit with a plain http.Client.
func newTestServer(t *testing.T, health func(context.Context) error) testEnv {
	t.Helper()

	mem := storetest.New()
	ps := persist.New(mem)
	reg := service.NewRegister(ps, service.WithClock(func() time.Time { return testNow }))
	reg.Load(context.Background())
	clock := draft.WithClock(func() time.Time { return testNow })

	registry := prometheus.NewRegistry()
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   zerolog.Nop(),
		Addr:     ":0",
		Register: reg,
		Visitors: service.NewVisitorIntake(reg, draft.New[types.VisitorDraft](ps, persist.VisitorDraftKey, clock)),
		Events:   service.NewEventIntake(reg, draft.New[types.EventDraft](ps, persist.EventDraftKey, clock)),
		Metrics:  metrics.New(registry),
		Gatherer: registry,
		Health:   health,
		Location: time.UTC,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return testEnv{ts: ts, mem: mem}
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

const jeanDupont = `{"name":"Jean Dupont","email":"jean@acme.fr","company":"ACME","purpose":"meeting","date":"2024-03-01","time":"09:30"}`

// ── Visitors ─────────────────────────────────────────────────────────────────

func TestVisitors_CreateListSearch(t *testing.T) {
	env := newTestServer(t, nil)

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/visitors",
		`{"name":"Alice Martin","email":"alice@orange.fr","company":"Orange","purpose":"delivery","date":"2024-02-10","time":"14:00"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/visitors", jeanDupont)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[types.Visitor](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "2024-03-01", created.Date.Format(time.DateOnly))

	list := decodeJSON[struct {
		Visitors []types.Visitor `json:"visitors"`
		Count    int             `json:"count"`
	}](t, do(t, http.MethodGet, env.ts.URL+"/v1/visitors", ""))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "Jean Dupont", list.Visitors[0].Name, "most recent first")

	for _, q := range []string{"dupont", "Jean"} {
		found := decodeJSON[struct {
			Visitors []types.Visitor `json:"visitors"`
		}](t, do(t, http.MethodGet, env.ts.URL+"/v1/visitors/search?q="+q, ""))
		require.Len(t, found.Visitors, 1, q)
		assert.Equal(t, created.ID, found.Visitors[0].ID)
	}

	got := decodeJSON[types.Visitor](t, do(t, http.MethodGet, env.ts.URL+"/v1/visitors/"+created.ID, ""))
	assert.Equal(t, created.ID, got.ID)

	resp = do(t, http.MethodDelete, env.ts.URL+"/v1/visitors/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodGet, env.ts.URL+"/v1/visitors/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVisitors_ValidationErrors(t *testing.T) {
	env := newTestServer(t, nil)

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/visitors", `{"name":"J","email":"nope","company":"","purpose":"meeting"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeJSON[struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}](t, resp)
	assert.Equal(t, "validation_failed", body.Error)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "company")
	assert.Contains(t, body.Fields, "date")
}

func TestVisitors_BadJSON(t *testing.T) {
	env := newTestServer(t, nil)

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/visitors", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/visitors", `{"nickname":"JD"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are rejected")
}

func TestVisitors_ExportCSV(t *testing.T) {
	env := newTestServer(t, nil)

	resp := do(t, http.MethodGet, env.ts.URL+"/v1/visitors/export", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "nothing to export")

	do(t, http.MethodPost, env.ts.URL+"/v1/visitors", jeanDupont)

	resp = do(t, http.MethodGet, env.ts.URL+"/v1/visitors/export?format=csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="visiteurs-2024-03-05.csv"`, resp.Header.Get("Content-Disposition"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte{0xef, 0xbb, 0xbf}))

	r := csv.NewReader(bytes.NewReader(raw[3:]))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Jean Dupont", records[1][0])
	assert.Equal(t, "01/03/2024", records[1][5])

	resp = do(t, http.MethodGet, env.ts.URL+"/v1/visitors/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Traceability ─────────────────────────────────────────────────────────────

func TestEvents_CreateResolveFilter(t *testing.T) {
	env := newTestServer(t, nil)

	visitor := decodeJSON[types.Visitor](t, do(t, http.MethodPost, env.ts.URL+"/v1/visitors", jeanDupont))

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/events",
		`{"visitor_id":"`+visitor.ID+`","event_type":"badge_lost","description":"Badge perdu; parking","date":"2024-03-02"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := decodeJSON[types.TraceabilityEvent](t, resp)
	assert.Equal(t, "Jean Dupont", e.VisitorName)
	assert.Equal(t, types.StatusOpen, e.Status)

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/events/"+e.ID+"/resolve", `{"resolved_by":"Claire"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resolved := decodeJSON[types.TraceabilityEvent](t, resp)
	assert.Equal(t, types.StatusResolved, resolved.Status)
	assert.Equal(t, "Claire", resolved.ResolvedBy)
	assert.NotEmpty(t, resolved.ResolvedAt)

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/events/"+e.ID+"/resolve", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	open := decodeJSON[struct {
		Count int `json:"count"`
	}](t, do(t, http.MethodGet, env.ts.URL+"/v1/events?status=open", ""))
	assert.Equal(t, 0, open.Count)

	all := decodeJSON[struct {
		Count int `json:"count"`
	}](t, do(t, http.MethodGet, env.ts.URL+"/v1/events?status=all&type=badge_lost&q=parking", ""))
	assert.Equal(t, 1, all.Count)

	resp = do(t, http.MethodGet, env.ts.URL+"/v1/events/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), `"Badge perdu; parking"`)
}

// ── Drafts ───────────────────────────────────────────────────────────────────

func TestDrafts_VisitorLifecycle(t *testing.T) {
	env := newTestServer(t, nil)

	type draftResp struct {
		Form     types.VisitorForm `json:"form"`
		Restored bool              `json:"restored"`
		Dirty    bool              `json:"dirty"`
		SavedAt  *time.Time        `json:"saved_at"`
	}

	d := decodeJSON[draftResp](t, do(t, http.MethodGet, env.ts.URL+"/v1/drafts/visitor", ""))
	assert.False(t, d.Restored)
	assert.False(t, d.Dirty)
	assert.Nil(t, d.SavedAt)
	assert.Equal(t, types.PurposeMeeting, d.Form.Purpose)
	assert.Equal(t, "10:00", d.Form.Time)

	resp := do(t, http.MethodPut, env.ts.URL+"/v1/drafts/visitor",
		`{"name":"Jean","company":"ACME","purpose":"meeting","date":"2024-03-01","time":"09:30"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeJSON[draftResp](t, resp)
	assert.True(t, st.Dirty)
	require.NotNil(t, st.SavedAt)
	assert.True(t, st.SavedAt.Equal(testNow))
	assert.ElementsMatch(t, []string{"gpis_visitor_form_draft"}, env.mem.Keys())

	d = decodeJSON[draftResp](t, do(t, http.MethodGet, env.ts.URL+"/v1/drafts/visitor", ""))
	require.True(t, d.Restored)
	assert.False(t, d.Dirty, "a remount starts clean")
	require.NotNil(t, d.SavedAt, "the restored draft reports when it was saved")
	assert.True(t, d.SavedAt.Equal(testNow))
	assert.Equal(t, "Jean", d.Form.Name)
	assert.Equal(t, "2024-03-01", d.Form.Date.Format(time.DateOnly))

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/visitors", jeanDupont)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	d = decodeJSON[draftResp](t, do(t, http.MethodGet, env.ts.URL+"/v1/drafts/visitor", ""))
	assert.False(t, d.Restored, "submit clears the draft")
}

func TestDrafts_EventResetAndSelect(t *testing.T) {
	env := newTestServer(t, nil)
	visitor := decodeJSON[types.Visitor](t, do(t, http.MethodPost, env.ts.URL+"/v1/visitors", jeanDupont))

	type draftResp struct {
		Form     types.EventForm `json:"form"`
		Restored bool            `json:"restored"`
		Dirty    bool            `json:"dirty"`
		SavedAt  *time.Time      `json:"saved_at"`
	}

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/drafts/event/visitor/"+visitor.ID, `{"event_type":"badge_found"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	d := decodeJSON[draftResp](t, resp)
	assert.Equal(t, "Jean Dupont", d.Form.VisitorName)
	assert.True(t, d.Dirty)
	assert.NotNil(t, d.SavedAt)

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/drafts/event/visitor/unknown", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	d = decodeJSON[draftResp](t, do(t, http.MethodGet, env.ts.URL+"/v1/drafts/event", ""))
	require.True(t, d.Restored)
	assert.Equal(t, types.EventBadgeFound, d.Form.Kind)

	d = decodeJSON[draftResp](t, do(t, http.MethodDelete, env.ts.URL+"/v1/drafts/event", ""))
	assert.Equal(t, types.EventBadgeLost, d.Form.Kind, "reset returns defaults")
	assert.False(t, d.Dirty)
	assert.Nil(t, d.SavedAt)

	d = decodeJSON[draftResp](t, do(t, http.MethodGet, env.ts.URL+"/v1/drafts/event", ""))
	assert.False(t, d.Restored)
}

// ── Signatures ───────────────────────────────────────────────────────────────

func TestSignatures_Replay(t *testing.T) {
	env := newTestServer(t, nil)

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/signatures", `{"events":[
		{"type":"down","x":10,"y":10},{"type":"move","x":80,"y":40},{"type":"up"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sig := decodeJSON[struct {
		Payload string `json:"payload"`
		Empty   bool   `json:"empty"`
	}](t, resp)
	assert.False(t, sig.Empty)

	img, err := signature.Decode(sig.Payload)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())

	// The payload is accepted on a visitor record.
	var form map[string]any
	require.NoError(t, json.Unmarshal([]byte(jeanDupont), &form))
	form["signature"] = sig.Payload
	body, _ := json.Marshal(form)
	resp = do(t, http.MethodPost, env.ts.URL+"/v1/visitors", string(body))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/signatures", `{"width":-1,"events":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/signatures", `{"events":[{"type":"tap"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSignatures_SurfaceSizeIsCapped(t *testing.T) {
	env := newTestServer(t, nil)

	for _, body := range []string{
		`{"width":8000,"height":8000,"events":[]}`,
		`{"width":4294967296,"height":150,"events":[]}`,
	} {
		resp := do(t, http.MethodPost, env.ts.URL+"/v1/signatures", body)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, body)
		e := decodeJSON[struct {
			Error string `json:"error"`
		}](t, resp)
		assert.Equal(t, "surface_too_large", e.Error)
	}
}

func TestVisitors_RejectsOversizedSignatureImage(t *testing.T) {
	env := newTestServer(t, nil)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	raw := buf.Bytes()
	binary.BigEndian.PutUint32(raw[16:20], 20000)
	binary.BigEndian.PutUint32(raw[20:24], 20000)
	binary.BigEndian.PutUint32(raw[29:33], crc32.ChecksumIEEE(raw[12:29]))

	var form map[string]any
	require.NoError(t, json.Unmarshal([]byte(jeanDupont), &form))
	form["signature"] = signature.PayloadPrefix + base64.StdEncoding.EncodeToString(raw)
	body, _ := json.Marshal(form)

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/visitors", string(body))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// ── Protobuf ─────────────────────────────────────────────────────────────────

func TestProtobuf_StructRoundTrip(t *testing.T) {
	env := newTestServer(t, nil)

	in, err := structpb.NewStruct(map[string]any{
		"name":    "Jean Dupont",
		"email":   "jean@acme.fr",
		"company": "ACME",
		"purpose": "meeting",
		"date":    "2024-03-01",
		"time":    "09:30",
	})
	require.NoError(t, err)
	data, err := proto.Marshal(in)
	require.NoError(t, err)

	resp, err := http.Post(env.ts.URL+"/v1/visitors", "application/x-protobuf", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &out))
	assert.Equal(t, "Jean Dupont", out.GetFields()["name"].GetStringValue())
	assert.NotEmpty(t, out.GetFields()["id"].GetStringValue())
}

// ── Health / metrics ─────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	env := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, env.ts.URL+"/healthz", "").StatusCode)

	down := newTestServer(t, func(context.Context) error { return errors.New("disk gone") })
	assert.Equal(t, http.StatusServiceUnavailable, do(t, http.MethodGet, down.ts.URL+"/healthz", "").StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestServer(t, nil)
	do(t, http.MethodPost, env.ts.URL+"/v1/visitors", jeanDupont)

	resp := do(t, http.MethodGet, env.ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "register_visitors_registered_total 1")
}
