package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracker "github.com/goliatone/go-tracker"
	"github.com/goliatone/go-tracker/metrics"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := metrics.New("tracker")

	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/projects/:id", func(c *fiber.Ctx) error {
		return c.SendString(c.Params("id"))
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusServiceUnavailable, "down")
	})

	for _, path := range []string{"/projects/1", "/projects/2", "/boom", "/nowhere"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/projects/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/boom", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.RequestDuration))
}

func TestRecordCountsActivity(t *testing.T) {
	m := metrics.New("tracker")
	ctx := context.Background()

	var sink tracker.ActivitySink = m
	require.NoError(t, sink.Record(ctx, tracker.ActivityEvent{EventType: tracker.ActivityEventTokenRejected, Reason: "expired"}))
	require.NoError(t, sink.Record(ctx, tracker.ActivityEvent{EventType: tracker.ActivityEventTokenRejected, Reason: "expired"}))
	require.NoError(t, sink.Record(ctx, tracker.ActivityEvent{EventType: tracker.ActivityEventTokenIssued}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActivityTotal.WithLabelValues("token.rejected", "expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActivityTotal.WithLabelValues("token.issued", "")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := metrics.New("tracker")
	m.ActivityTotal.WithLabelValues("signup.requested", "").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), `tracker_activity_events_total{reason="",type="signup.requested"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
