package bootstrap

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/tour-availability/internal/availability"
	appconfig "github.com/wolfman30/tour-availability/internal/config"
	"github.com/wolfman30/tour-availability/pkg/logging"
)

func TestBuildAvailabilityServiceWithoutCredentials(t *testing.T) {
	cfg := &appconfig.Config{DisplayTimezone: "Europe/London"}

	svc, err := BuildAvailabilityService(cfg, nil, nil)
	require.NoError(t, err)
	assert.False(t, svc.Configured())

	_, err = svc.Availability(context.Background(), "2025-09-22", "2025-09-23")
	assert.ErrorIs(t, err, availability.ErrNotConfigured)
}

func TestBuildAvailabilityServiceConfigured(t *testing.T) {
	cfg := &appconfig.Config{
		BokunAccessKey:       "ak",
		BokunSecretKey:       "sk",
		BokunBaseURL:         "http://127.0.0.1:1",
		BokunTimeout:         time.Second,
		BokunMaxAttempts:     1,
		DisplayTimezone:      "+01:00",
		MaxConcurrentFetches: 2,
	}

	svc, err := BuildAvailabilityService(cfg, nil, nil)
	require.NoError(t, err)
	assert.True(t, svc.Configured())
}

func TestBuildAvailabilityServiceRejectsBadTimezone(t *testing.T) {
	_, err := BuildAvailabilityService(&appconfig.Config{DisplayTimezone: "Mars/Olympus"}, nil, nil)
	assert.Error(t, err)
}

func TestBuildAvailabilityServiceLoadsCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products: []\n"), 0o600))

	_, err := BuildAvailabilityService(&appconfig.Config{ProductsFile: path}, nil, nil)
	assert.ErrorContains(t, err, "no products defined")
}

func TestBuildAvailabilityServiceRequiresConfig(t *testing.T) {
	_, err := BuildAvailabilityService(nil, nil, nil)
	assert.Error(t, err)
}

func TestBuildAvailabilityServiceTagsBokunLogs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer ts.Close()

	var buf bytes.Buffer
	cfg := &appconfig.Config{
		BokunAccessKey:       "ak",
		BokunSecretKey:       "sk",
		BokunBaseURL:         ts.URL,
		BokunTimeout:         time.Second,
		BokunMaxAttempts:     1,
		DisplayTimezone:      "+01:00",
		MaxConcurrentFetches: 2,
	}
	svc, err := BuildAvailabilityService(cfg, logging.NewWithWriter(&buf, "info"), nil)
	require.NoError(t, err)

	_, _ = svc.Availability(context.Background(), "2025-09-22", "2025-09-23")

	var upstream []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "bokun API non-2xx response") {
			upstream = append(upstream, line)
		}
	}
	require.NotEmpty(t, upstream)
	for _, line := range upstream {
		assert.Contains(t, line, `"component":"bokun"`)
	}
	configured := firstLine(buf.String(), "availability service configured")
	require.NotEmpty(t, configured)
	assert.NotContains(t, configured, `"component"`)
}

func firstLine(out, msg string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, msg) {
			return line
		}
	}
	return ""
}
