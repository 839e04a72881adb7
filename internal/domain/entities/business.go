package entities

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// Business represents a local business listing
type Business struct {
	ID           string       `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Description  string       `json:"description" db:"description"`
	Email        string       `json:"email,omitempty" db:"email"`
	Phone        string       `json:"phone,omitempty" db:"phone"`
	City         string       `json:"city,omitempty" db:"city"`
	Address      string       `json:"address,omitempty" db:"address"`
	CategoryID   string       `json:"categoryId,omitempty" db:"category_id"`
	ServiceIDs   []string     `json:"serviceIds" db:"-"`
	Rating       float64      `json:"rating" db:"rating"`
	Location     *geo.Point   `json:"location,omitempty" db:"-"`
	OpeningHours OpeningHours `json:"openingHours,omitempty" db:"-"`
	OwnerID      string       `json:"ownerId,omitempty" db:"owner_id"`
	IsActive     bool         `json:"active" db:"is_active"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" db:"updated_at"`
}

// TimeRange is an inclusive open/close window written as HH:MM
type TimeRange struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// DayHours describes one weekday. Day follows time.Weekday, 0 is Sunday.
type DayHours struct {
	Day    int         `json:"day"`
	Closed bool        `json:"closed"`
	Ranges []TimeRange `json:"ranges"`
}

// OpeningHours is a structured weekly schedule. An empty schedule means the
// business is always open.
type OpeningHours []DayHours

// IsOpenAt evaluates the schedule for a weekday and minute of day.
// Malformed ranges never match.
func (h OpeningHours) IsOpenAt(weekday int, minuteOfDay int) bool {
	if len(h) == 0 {
		return true
	}

	for _, day := range h {
		if day.Day != weekday || day.Closed {
			continue
		}
		for _, r := range day.Ranges {
			open, ok := parseClock(r.Open)
			if !ok {
				continue
			}
			closing, ok := parseClock(r.Close)
			if !ok {
				continue
			}
			if minuteOfDay >= open && minuteOfDay <= closing {
				return true
			}
		}
	}
	return false
}

// IsOpen evaluates the schedule at t, in t's location
func (h OpeningHours) IsOpen(t time.Time) bool {
	return h.IsOpenAt(int(t.Weekday()), t.Hour()*60+t.Minute())
}

// DecodeOpeningHours parses a stored schedule. Unreadable data decodes to a
// schedule that is never open, so corrupt rows fail closed.
func DecodeOpeningHours(raw []byte) OpeningHours {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var hours OpeningHours
	if err := json.Unmarshal(raw, &hours); err != nil {
		return OpeningHours{{Day: -1, Closed: true}}
	}
	return hours
}

// parseClock converts HH:MM to minutes since midnight. 24:00 is accepted as
// the end of the day.
func parseClock(s string) (int, bool) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || len(mm) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, false
	}
	return h*60 + m, true
}
