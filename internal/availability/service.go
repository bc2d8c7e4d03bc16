// Package availability merges Bokun slots for every catalog product into a
// single chronologically ordered list of calendar events.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/tour-availability/internal/bokun"
	"github.com/wolfman30/tour-availability/internal/catalog"
	"github.com/wolfman30/tour-availability/internal/observability/metrics"
	"github.com/wolfman30/tour-availability/internal/slottime"
	"github.com/wolfman30/tour-availability/pkg/logging"
)

var availabilityTracer = otel.Tracer("tours.internal.availability")

const (
	defaultMaxConcurrency = 4
	defaultFetchTimeout   = 15 * time.Second
	dateLayout            = "2006-01-02"
)

var (
	// ErrNotConfigured means the service cannot answer any request: upstream
	// credentials are missing or the catalog is empty.
	ErrNotConfigured = errors.New("availability: service not configured")
	// ErrInvalidRange means a boundary is not a date or the range is inverted.
	ErrInvalidRange = errors.New("availability: invalid date range")
)

// Fetcher returns the raw upstream slots for one product. start and end are
// YYYY-MM-DD. Implementations must be safe for concurrent use.
type Fetcher interface {
	GetAvailabilities(ctx context.Context, productID, start, end string) ([]bokun.RawSlot, error)
}

// Service builds calendar events from upstream availability. It keeps no
// per-request state and may be called concurrently.
type Service struct {
	fetcher        Fetcher
	products       []catalog.Product
	normalizer     *slottime.Normalizer
	logger         *logging.Logger
	metrics        *metrics.AvailabilityMetrics
	maxConcurrency int
	fetchTimeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMaxConcurrency bounds how many products are fetched at once.
func WithMaxConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

// WithFetchTimeout sets the deadline applied to each product fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithMetrics records upstream and slot metrics; nil disables them.
func WithMetrics(m *metrics.AvailabilityMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wires the aggregator. A nil fetcher is allowed and yields a
// service that reports ErrNotConfigured on every call.
func NewService(fetcher Fetcher, products []catalog.Product, normalizer *slottime.Normalizer, logger *logging.Logger, opts ...Option) *Service {
	if normalizer == nil {
		normalizer = slottime.New(nil)
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		fetcher:        fetcher,
		products:       append([]catalog.Product(nil), products...),
		normalizer:     normalizer,
		logger:         logger,
		maxConcurrency: defaultMaxConcurrency,
		fetchTimeout:   defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether Availability can serve requests.
func (s *Service) Configured() bool {
	return s != nil && s.fetcher != nil && len(s.products) > 0
}

// Availability returns events for every product between start and end. Each
// boundary may be a bare date or a full ISO 8601 timestamp. Per-product
// upstream failures are logged and skipped; the result may be partial and is
// never nil.
func (s *Service) Availability(ctx context.Context, start, end string) ([]CalendarEvent, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	startDate, err := NormalizeDate(start)
	if err != nil {
		return nil, err
	}
	endDate, err := NormalizeDate(end)
	if err != nil {
		return nil, err
	}
	if endDate < startDate {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, endDate, startDate)
	}

	ctx, span := availabilityTracer.Start(ctx, "availability.list")
	defer span.End()
	span.SetAttributes(
		attribute.String("tours.range.start", startDate),
		attribute.String("tours.range.end", endDate),
		attribute.Int("tours.products", len(s.products)),
	)

	perProduct := make([][]CalendarEvent, len(s.products))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, product := range s.products {
		g.Go(func() error {
			perProduct[i] = s.productEvents(ctx, product, startDate, endDate)
			return nil
		})
	}
	_ = g.Wait()

	events := mergeEvents(perProduct)
	span.SetAttributes(attribute.Int("tours.events", len(events)))
	s.metrics.ObserveEvents(len(events))
	return events, nil
}

// productEvents fetches and converts one product's slots. Failures are
// absorbed here so one product never affects another.
func (s *Service) productEvents(ctx context.Context, product catalog.Product, start, end string) []CalendarEvent {
	ctx, span := availabilityTracer.Start(ctx, "availability.product",
		trace.WithAttributes(attribute.String("tours.product_id", product.ID)),
	)
	defer span.End()

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	began := time.Now()
	slots, err := s.fetch(fetchCtx, product.ID, start, end)
	elapsed := time.Since(began).Seconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream fetch failed")
		s.metrics.ObserveUpstream(product.ID, "error", elapsed)
		s.logger.Warn("availability fetch failed, skipping product",
			"product_id", product.ID,
			"error", err,
		)
		return nil
	}
	s.metrics.ObserveUpstream(product.ID, "ok", elapsed)

	loc := s.normalizer.Location()
	events := make([]CalendarEvent, 0, len(slots))
	dropped := 0
	for _, slot := range slots {
		res, ok := s.normalizer.Resolve(slot)
		s.metrics.ObserveSlot(string(res.Rule))
		if !ok {
			dropped++
			s.logger.Debug("slot dropped",
				"product_id", product.ID,
				"slot_id", slot.ID(),
				"reason", res.Reason,
			)
			continue
		}
		s.logger.Debug("slot resolved",
			"product_id", product.ID,
			"slot_id", slot.ID(),
			"rule", string(res.Rule),
			"field", res.Field,
		)
		events = append(events, newEvent(product, slot, res.Start, loc))
	}
	span.SetAttributes(
		attribute.Int("tours.slots", len(slots)),
		attribute.Int("tours.slots_dropped", dropped),
	)
	return events
}

// fetch converts a panicking fetcher into a per-product error.
func (s *Service) fetch(ctx context.Context, productID, start, end string) (slots []bokun.RawSlot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch %s panicked: %v", productID, r)
		}
	}()
	return s.fetcher.GetAvailabilities(ctx, productID, start, end)
}

// mergeEvents flattens per-product results in catalog order and sorts by
// instant. The stable sort keeps catalog then upstream order for ties, so the
// output never depends on fetch completion order.
func mergeEvents(perProduct [][]CalendarEvent) []CalendarEvent {
	total := 0
	for _, evs := range perProduct {
		total += len(evs)
	}
	merged := make([]CalendarEvent, 0, total)
	for _, evs := range perProduct {
		merged = append(merged, evs...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].start.Before(merged[j].start)
	})
	return merged
}

// NormalizeDate reduces a range boundary to YYYY-MM-DD. A longer value must
// look like an ISO 8601 date-time ("T" or space after the date); its calendar
// date is kept as written. The time part is not validated because query
// strings often turn a "+01:00" offset into " 01:00".
func NormalizeDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if len(s) < len(dateLayout) {
		return "", fmt.Errorf("%w: %q is not a date", ErrInvalidRange, raw)
	}
	if len(s) > len(dateLayout) && !strings.ContainsRune("Tt ", rune(s[len(dateLayout)])) {
		return "", fmt.Errorf("%w: %q is not a date", ErrInvalidRange, raw)
	}
	date := s[:len(dateLayout)]
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", fmt.Errorf("%w: %q is not a date", ErrInvalidRange, raw)
	}
	return date, nil
}
