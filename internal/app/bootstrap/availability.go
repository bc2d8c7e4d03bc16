package bootstrap

import (
	"errors"
	"fmt"

	"github.com/wolfman30/tour-availability/internal/availability"
	"github.com/wolfman30/tour-availability/internal/bokun"
	"github.com/wolfman30/tour-availability/internal/catalog"
	appconfig "github.com/wolfman30/tour-availability/internal/config"
	"github.com/wolfman30/tour-availability/internal/observability/metrics"
	"github.com/wolfman30/tour-availability/internal/slottime"
	"github.com/wolfman30/tour-availability/pkg/logging"
)

// BuildAvailabilityService wires the Bokun client, catalog and normalizer.
// Missing credentials are not an error: the service is returned unconfigured
// and answers every request with availability.ErrNotConfigured.
func BuildAvailabilityService(cfg *appconfig.Config, logger *logging.Logger, m *metrics.AvailabilityMetrics) (*availability.Service, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	loc, err := slottime.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: display timezone: %w", err)
	}
	products, err := catalog.Load(cfg.ProductsFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	var fetcher availability.Fetcher
	if creds, ok := cfg.BokunCredentials(); ok {
		client, err := bokun.NewClient(creds, logger.With("component", "bokun"),
			bokun.WithBaseURL(cfg.BokunBaseURL),
			bokun.WithTimeout(cfg.BokunTimeout),
			bokun.WithLocale(cfg.BokunLang, cfg.BokunCurrency),
			bokun.WithIncludeSoldOut(cfg.BokunIncludeSoldOut),
			bokun.WithMaxAttempts(cfg.BokunMaxAttempts),
		)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: bokun client: %w", err)
		}
		fetcher = client
	} else {
		logger.Warn("BOKUN_ACCESS_KEY or BOKUN_SECRET_KEY not set; availability requests will return 503")
	}

	logger.Info("availability service configured",
		"products", len(products),
		"display_timezone", loc.String(),
		"upstream", cfg.BokunBaseURL,
	)
	return availability.NewService(fetcher, products, slottime.New(loc), logger,
		availability.WithMaxConcurrency(cfg.MaxConcurrentFetches),
		availability.WithFetchTimeout(cfg.BokunTimeout),
		availability.WithMetrics(m),
	), nil
}
