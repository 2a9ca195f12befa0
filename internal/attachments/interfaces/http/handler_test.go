package http

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attachments "respcare-monitor/internal/attachments/domain"
	"respcare-monitor/internal/attachments/infrastructure/file"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := file.NewRepository(filepath.Join(t.TempDir(), "attachments.json"))
	handler, err := NewHandler(repo, "patient-1", fixedClock{now: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)
	mux := http.NewServeMux()
	handler.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPhotos(t *testing.T) {
	srv := newServer(t)
	data := base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	resp, err := http.Post(srv.URL+"/api/v1/photos", "application/json",
		strings.NewReader(`{"note":"stoma site","contentType":"image/png","data":"`+data+`"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created attachments.Photo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "patient-1", created.PatientID)
	assert.Equal(t, time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC), created.TakenAt)

	list, err := http.Get(srv.URL + "/api/v1/photos")
	require.NoError(t, err)
	defer list.Body.Close()
	var photos []attachments.Photo
	require.NoError(t, json.NewDecoder(list.Body).Decode(&photos))
	require.Len(t, photos, 1)
	assert.Equal(t, "stoma site", photos[0].Note)

	bad, err := http.Post(srv.URL+"/api/v1/photos", "application/json", strings.NewReader(`{"contentType":"text/plain","data":"`+data+`"}`))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestDevices(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/devices", "application/json", strings.NewReader(`{"id":"vent","name":"Ventilator"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp2, err := http.Post(srv.URL+"/api/v1/devices", "application/json", strings.NewReader(`{"id":"vent","name":"Ventilator","serial":"SN-1"}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusCreated, resp2.StatusCode)

	list, err := http.Get(srv.URL + "/api/v1/devices")
	require.NoError(t, err)
	defer list.Body.Close()
	var devices []attachments.Device
	require.NoError(t, json.NewDecoder(list.Body).Decode(&devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "SN-1", devices[0].Serial)

	missing, err := http.Post(srv.URL+"/api/v1/devices", "application/json", strings.NewReader(`{"name":""}`))
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/devices", nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer del.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, del.StatusCode)
}
