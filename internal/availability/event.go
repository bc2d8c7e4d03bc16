package availability

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wolfman30/tour-availability/internal/bokun"
	"github.com/wolfman30/tour-availability/internal/catalog"
	"github.com/wolfman30/tour-availability/internal/slottime"
)

const (
	colorAvailable = "green"
	colorSoldOut   = "red"
)

// CalendarEvent is one bookable slot in the shape FullCalendar consumes.
type CalendarEvent struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           string        `json:"end,omitempty"`
	AllDay        bool          `json:"allDay"`
	Color         string        `json:"color"`
	URL           *string       `json:"url"`
	IsSoldOut     bool          `json:"isSoldOut"`
	TimeLabel     string        `json:"timeLabel"`
	DateLabel     string        `json:"dateLabel"`
	ExtendedProps ExtendedProps `json:"extendedProps"`

	start time.Time
}

// ExtendedProps carries slot metadata FullCalendar passes through untouched.
type ExtendedProps struct {
	ProductID         string `json:"productId"`
	Spots             int    `json:"spots"`
	Duration          string `json:"duration,omitempty"`
	DepartureLocation string `json:"departureLocation,omitempty"`
	ActivityTitle     string `json:"activityTitle,omitempty"`
}

// StartTime returns the resolved instant the event was built from.
func (e CalendarEvent) StartTime() time.Time {
	return e.start
}

func newEvent(product catalog.Product, slot bokun.RawSlot, start time.Time, loc *time.Location) CalendarEvent {
	spots := slot.AvailabilityCount()
	soldOut := slot.SoldOut()
	local := start.In(loc)

	ev := CalendarEvent{
		ID:        eventID(product.ID, slot, start),
		Title:     eventTitle(product.Name, spots, soldOut),
		Start:     slottime.Format(start, loc),
		Color:     eventColor(product, soldOut),
		IsSoldOut: soldOut,
		TimeLabel: local.Format("15:04"),
		DateLabel: local.Format("Mon 2 Jan 2006"),
		ExtendedProps: ExtendedProps{
			ProductID:         product.ID,
			Spots:             spots,
			Duration:          durationLabel(product.DurationMinutes),
			DepartureLocation: product.DepartureLocation,
			ActivityTitle:     slot.ActivityTitle(),
		},
		start: start,
	}
	if product.DurationMinutes > 0 {
		end := start.Add(time.Duration(product.DurationMinutes) * time.Minute)
		ev.End = slottime.Format(end, loc)
	}
	if !soldOut && product.BookingURL != "" {
		url := product.BookingURL
		ev.URL = &url
	}
	return ev
}

func eventID(productID string, slot bokun.RawSlot, start time.Time) string {
	if id := slot.ID(); id != "" {
		return productID + "-" + id
	}
	return productID + "-" + strconv.FormatInt(start.UnixMilli(), 10)
}

func eventTitle(name string, spots int, soldOut bool) string {
	switch {
	case soldOut:
		return name + " - Sold out"
	case spots == 1:
		return name + " - 1 spot"
	default:
		return fmt.Sprintf("%s - %d spots", name, spots)
	}
}

func eventColor(product catalog.Product, soldOut bool) string {
	if soldOut {
		return colorSoldOut
	}
	if product.Color != "" {
		return product.Color
	}
	return colorAvailable
}

// durationLabel renders minutes as "45 min", "2h" or "1h 30m".
func durationLabel(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
