package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLoggerJSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := NewLoggerTo(&buf, "warn")
	lg.Info("hidden")
	lg.Warn("frame rejected", "reason", "bad_prefix")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "frame rejected", rec["msg"])
	assert.Equal(t, "bad_prefix", rec["reason"])
}

func TestMetricsHandler(t *testing.T) {
	LinesRecv.Inc()
	before := testutil.ToFloat64(FramesRejected.WithLabelValues("bad_prefix"))
	FramesRejected.WithLabelValues("bad_prefix").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(FramesRejected.WithLabelValues("bad_prefix")))
	ObserveParseLatency(time.Now())

	srv := httptest.NewServer(NewMetricsHandler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	var body bytes.Buffer
	_, _ = body.ReadFrom(res.Body)
	res.Body.Close()
	assert.Contains(t, body.String(), "gtrc_lines_received_total")
	assert.Contains(t, body.String(), `gtrc_frames_rejected_total{reason="bad_prefix"}`)
}

func startHealth(t *testing.T) (*HealthServer, healthpb.HealthClient) {
	t.Helper()
	lis := bufconn.Listen(1 << 16)
	hs := NewHealthServer()
	go func() { _ = hs.Serve(lis) }()
	t.Cleanup(hs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return hs, healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	return res.GetStatus()
}

func TestHealthTrackFailedRun(t *testing.T) {
	hs, client := startHealth(t)
	boom := errors.New("transport read: transport: closed")

	err := hs.Track(func() error {
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkStatus(t, client))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client))
}

func TestHealthTrackNil(t *testing.T) {
	var hs *HealthServer
	called := false
	require.NoError(t, hs.Track(func() error { called = true; return nil }))
	assert.True(t, called)
}

func TestHealthServer(t *testing.T) {
	lis := bufconn.Listen(1 << 16)
	hs := NewHealthServer()
	go func() { _ = hs.Serve(lis) }()
	defer hs.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, res.GetStatus())

	hs.SetServing(true)
	res, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, res.GetStatus())
}
