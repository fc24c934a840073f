package web

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-day-planner/internal/export"
	"ai-day-planner/internal/itinerary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrip() (itinerary.TripPreferences, itinerary.Itinerary) {
	prefs := itinerary.DefaultPreferences().
		WithCity("Porto").
		WithDate(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC))
	it := itinerary.New([]itinerary.Entry{
		{Type: itinerary.TypeMuseum, Time: "10:00 AM", Duration: "1.5 hrs", Name: "Serralves", Description: "Modern art"},
		{Type: itinerary.TypeTransit, Method: "Bus", Duration: "15 min"},
		{Type: itinerary.TypeFood, Time: "12:30 PM", Duration: "1 hr", Name: "Bolhão Market"},
	})
	return prefs, it
}

func newTestServer(t *testing.T, webhook http.Handler, logs *bytes.Buffer) (http.Handler, *export.ShareCodec) {
	t.Helper()
	share, err := export.NewShareCodec("web-secret", time.Hour)
	require.NoError(t, err)
	logger := slog.New(slog.NewJSONHandler(logs, nil))
	return NewServer(logger, webhook, share, t.TempDir()).Router(), share
}

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t, nil, &bytes.Buffer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Positive(t, body.Goroutines)
}

func TestSharedItinerary(t *testing.T) {
	var logs bytes.Buffer
	router, share := newTestServer(t, nil, &logs)
	token, err := share.Encode(sampleTrip())
	require.NoError(t, err)

	t.Run("Page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/"+token, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "Serralves")
		assert.Contains(t, rec.Body.String(), "Porto")
	})

	t.Run("Calendar", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/"+token+"/calendar.ics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "day-in-porto.ics")
		assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
	})

	t.Run("InvalidToken", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/"+token+"x", nil))

		require.Equal(t, http.StatusNotFound, rec.Code)
		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not_found", body.Error.Code)
	})

	assert.NotContains(t, logs.String(), token, "tokens must not reach the request log")
	assert.Contains(t, logs.String(), "/share/{token}")
}

func TestSharedCalendarFilename(t *testing.T) {
	router, share := newTestServer(t, nil, &bytes.Buffer{})
	prefs, it := sampleTrip()
	token, err := share.Encode(prefs.WithCity(`Porto"; filename="evil.sh`), it)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/"+token+"/calendar.ics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "day-in-porto-filename-evil-sh.ics", params["filename"])
}

func TestSharingDisabled(t *testing.T) {
	router := NewServer(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil, nil, t.TempDir()).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/anything", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "sharing is disabled")
}

func TestWebhook(t *testing.T) {
	var got string
	hook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got = buf.String()
		w.WriteHeader(http.StatusOK)
	})
	router, _ := newTestServer(t, hook, &bytes.Buffer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id": 1}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"update_id": 1}`, got)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(strings.Repeat("x", webhookBodyLimit+1))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
