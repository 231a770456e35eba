package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/checklist/internal/audit"
	"github.com/nhle/checklist/internal/model"
	"github.com/nhle/checklist/internal/store"
	"github.com/nhle/checklist/tests/testutil"
)

func newTestServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	st := testutil.NewTestStore(t)
	srv := New(Config{Store: st, ViewLimit: 10, Logger: testutil.NewTestLogger(t)})
	srv.now = func() time.Time { return testutil.FixedNow }
	return srv, st
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Routes(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEntryLifecycleOverHTTP(t *testing.T) {
	srv, st := newTestServer(t)
	testutil.NewList(t, st, "Books")
	films := testutil.NewList(t, st, "Films")
	h := srv.Routes()

	for _, name := range []string{"Dune", "Emma", "Ulysses"} {
		rec := do(t, h, postForm("/api/lists/Books/entries", url.Values{
			"name": {name}, "status": {"1"}, "position": {"None"},
		}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rows := testutil.Group(t, st, "Books", testutil.PlannedID)
	ulysses := testutil.Find(t, rows, "Ulysses")

	rec := do(t, h, postForm(fmt.Sprintf("/api/lists/Books/entries/%d", ulysses.ID), url.Values{
		"old_status": {"1"}, "status": {"1"},
		"old_pos": {"3"}, "pos": {"1"},
		"old_name": {"Ulysses"}, "name": {"Ulysses"},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"list":"Books"}`, rec.Body.String())
	assert.Equal(t, []string{"Ulysses", "Dune", "Emma"}, testutil.Names(testutil.Group(t, st, "Books", testutil.PlannedID)))

	dune := testutil.Find(t, testutil.Group(t, st, "Books", testutil.PlannedID), "Dune")
	rec = do(t, h, postForm(fmt.Sprintf("/api/lists/Books/entries/%d", dune.ID), url.Values{
		"table":      {fmt.Sprint(films.ID)},
		"old_status": {"1"}, "status": {"2"},
		"old_pos": {"2"}, "pos": {""},
		"old_name": {"Dune"}, "name": {"Dune"},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"list":"Films"}`, rec.Body.String())
	assert.Equal(t, []int{1, 2}, testutil.Positions(testutil.Group(t, st, "Books", testutil.PlannedID)))

	emma := testutil.Find(t, testutil.Group(t, st, "Books", testutil.PlannedID), "Emma")
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/lists/Books/entries/%d?name=Emma", emma.ID), nil)
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Ulysses"}, testutil.Names(testutil.Group(t, st, "Books", testutil.PlannedID)))

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/lists/Films", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var groups []model.StatusGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 3)
	require.Len(t, groups[1].Rows, 1)
	assert.Equal(t, "Dune", groups[1].Rows[0].Name)
	assert.Equal(t, testutil.Today, *groups[1].Rows[0].Date)
}

func TestInsertJSON(t *testing.T) {
	srv, st := newTestServer(t)
	testutil.NewList(t, st, "Books")

	req := httptest.NewRequest(http.MethodPost, "/api/lists/Books/entries",
		strings.NewReader(`{"name":"Dune","status":2,"date":"2023-02-01"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, srv.Routes(), req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rows := testutil.Group(t, st, "Books", testutil.DoneID)
	require.Len(t, rows, 1)
	assert.Equal(t, "2023-02-01", *rows[0].Date)
}

func TestErrorMapping(t *testing.T) {
	srv, st := newTestServer(t)
	testutil.NewList(t, st, "Books")
	h := srv.Routes()

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{
			name: "unknown list",
			req:  httptest.NewRequest(http.MethodGet, "/api/lists/Nope", nil),
			want: http.StatusNotFound,
		},
		{
			name: "non-numeric position",
			req:  postForm("/api/lists/Books/entries", url.Values{"name": {"x"}, "status": {"1"}, "position": {"two"}}),
			want: http.StatusBadRequest,
		},
		{
			name: "invisible status",
			req:  postForm("/api/lists/Books/entries", url.Values{"name": {"x"}, "status": {"9"}}),
			want: http.StatusNotFound,
		},
		{
			name: "bad entry id",
			req:  httptest.NewRequest(http.MethodDelete, "/api/lists/Books/entries/abc?name=x", nil),
			want: http.StatusBadRequest,
		},
		{
			name: "unknown entry",
			req:  httptest.NewRequest(http.MethodDelete, "/api/lists/Books/entries/99?name=x", nil),
			want: http.StatusNotFound,
		},
		{
			name: "bad limit",
			req:  httptest.NewRequest(http.MethodGet, "/api/overview?limit=-1", nil),
			want: http.StatusBadRequest,
		},
		{
			name: "bad export format",
			req:  httptest.NewRequest(http.MethodGet, "/api/export?format=xml", nil),
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) Tables(context.Context) ([]model.List, error) {
	return nil, errors.New("disk I/O error")
}

func TestStoreFailureIs500(t *testing.T) {
	srv := New(Config{Store: failingStore{}, Logger: testutil.NewTestLogger(t)})
	rec := do(t, srv.Routes(), httptest.NewRequest(http.MethodGet, "/api/lists", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExportImportOverHTTP(t *testing.T) {
	src, st := newTestServer(t)
	testutil.NewList(t, st, "Books")
	testutil.Append(t, st, "Books", testutil.PlannedID, "Dune", "Emma")

	rec := do(t, src.Routes(), httptest.NewRequest(http.MethodGet, "/api/export?format=yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	exported := rec.Body.Bytes()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "backup.yaml")
	require.NoError(t, err)
	_, err = fw.Write(exported)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	dst, dstStore := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = do(t, dst.Routes(), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"Dune", "Emma"}, testutil.Names(testutil.Group(t, dstStore, "Books", testutil.PlannedID)))
}

func TestImportLegacyBody(t *testing.T) {
	srv, st := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import",
		strings.NewReader(`{"Films": {"1": {"name": "Heat", "position": 0}}}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, srv.Routes(), req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows := testutil.Group(t, st, "Films", testutil.DoneID)
	require.Len(t, rows, 1)
	assert.Equal(t, testutil.Today, *rows[0].Date)
}

func TestSettingsOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/settings",
		strings.NewReader(`{"tables":[{"name":"Books","active":true}],"statuses":[]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res model.SettingsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.ListsInserted)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var settings model.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &settings))
	require.Len(t, settings.Lists, 1)
	assert.Len(t, settings.Columns[settings.Lists[0].ID], 3)

	req = httptest.NewRequest(http.MethodPut, "/api/lists/Books/statuses", strings.NewReader(`{"statuses":[2,1]}`))
	rec = do(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cols []model.StatusColumn
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cols))
	require.Len(t, cols, 2)
	assert.Equal(t, model.StatusDone, cols[0].Name)
}

func TestCheckAndAudit(t *testing.T) {
	srv, st := newTestServer(t)
	testutil.NewList(t, st, "Books")
	testutil.Append(t, st, "Books", testutil.PlannedID, "Dune")
	h := srv.Routes()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/check", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"consistent":true,"violations":[]}`, rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	auditor := audit.New(st, 0, testutil.NewTestLogger(t))
	auditor.Start(context.Background())
	t.Cleanup(auditor.Stop)
	srv.auditor = auditor
	h = srv.Routes()

	require.Eventually(t, func() bool { return auditor.Status().Runs == 1 }, time.Second, 5*time.Millisecond)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/audit?run=1", nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Eventually(t, func() bool { return auditor.Status().Runs == 2 }, time.Second, 5*time.Millisecond)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var status audit.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.Runs)
	assert.Equal(t, "idle", status.StateName)
	assert.Empty(t, status.Violations)
}

func TestJSONBodiesRejectMalformedDates(t *testing.T) {
	srv, st := newTestServer(t)
	testutil.NewList(t, st, "Books")
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodPost, "/api/lists/Books/entries",
		strings.NewReader(`{"name":"Emma","status":2,"date":"not-a-date"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Empty(t, testutil.Group(t, st, "Books", testutil.DoneID))

	req = httptest.NewRequest(http.MethodPost, "/api/lists/Books/entries",
		strings.NewReader(`{"name":"Emma","status":2,"date":"2024-01-02"}`))
	req.Header.Set("Content-Type", "application/json")
	require.Equal(t, http.StatusCreated, do(t, h, req).Code)
	emma := testutil.Find(t, testutil.Group(t, st, "Books", testutil.DoneID), "Emma")

	body := fmt.Sprintf(`{
		"old": {"list": %[1]d, "status": 2, "date": "2024-01-02", "name": "Emma"},
		"new": {"list": %[1]d, "status": 2, "date": "02/01/2024", "name": "Emma"}
	}`, emma.ListID)
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/lists/Books/entries/%d", emma.ID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rows := testutil.Group(t, st, "Books", testutil.DoneID)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-02", *rows[0].Date)
}

func TestDeleteReadsNameFromBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "form body", contentType: "application/x-www-form-urlencoded", body: "name=Emma"},
		{name: "json body", contentType: "application/json", body: `{"name":"Emma"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, st := newTestServer(t)
			testutil.NewList(t, st, "Books")
			testutil.Append(t, st, "Books", testutil.PlannedID, "Dune", "Emma")
			emma := testutil.Find(t, testutil.Group(t, st, "Books", testutil.PlannedID), "Emma")

			req := httptest.NewRequest(http.MethodDelete,
				fmt.Sprintf("/api/lists/Books/entries/%d", emma.ID), strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := do(t, srv.Routes(), req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			assert.Equal(t, []string{"Dune"}, testutil.Names(testutil.Group(t, st, "Books", testutil.PlannedID)))
		})
	}
}
