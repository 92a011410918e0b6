package delivery

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// DateLayout is the wire format for delivery days.
const DateLayout = "2006-01-02"

// WindowDays is how far ahead a delivery day may be booked.
const WindowDays = 31

var (
	ErrInvalidDay       = errors.New("delivery: day must be formatted YYYY-MM-DD")
	ErrDayOutsideWindow = errors.New("delivery: day is outside the delivery window")
	ErrWrongDayCount    = errors.New("delivery: wrong number of delivery days")
)

// Selection is the ordered set of chosen delivery days. Days stays sorted,
// free of duplicates and never longer than Required.
type Selection struct {
	Required int      `json:"requiredDays"`
	Days     []string `json:"selected"`
}

// NewSelection builds a Selection from client-held days. Duplicates are
// dropped and, when more than required days arrive, the earliest ones are
// evicted as Toggle would have done.
func NewSelection(required int, days ...string) Selection {
	if required < 1 {
		required = 1
	}
	out := make([]string, 0, len(days))
	for _, d := range days {
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	if len(out) > required {
		out = out[len(out)-required:]
	}
	return Selection{Required: required, Days: out}
}

// Toggle returns the selection with day flipped. A selected day is removed;
// otherwise it is added, evicting the earliest day when already full.
func (s Selection) Toggle(day string) Selection {
	days := slices.Clone(s.Days)
	if i := slices.Index(days, day); i >= 0 {
		return Selection{Required: s.Required, Days: slices.Delete(days, i, i+1)}
	}
	if len(days) >= s.Required && len(days) > 0 {
		days = days[1:]
	}
	days = append(days, day)
	slices.Sort(days)
	return Selection{Required: s.Required, Days: days}
}

// Ready reports whether exactly the required number of days is selected.
func (s Selection) Ready() bool {
	return len(s.Days) == s.Required
}

// Check returns ErrWrongDayCount unless the selection is Ready.
func (s Selection) Check() error {
	if s.Ready() {
		return nil
	}
	return fmt.Errorf("%w: have %d, need %d", ErrWrongDayCount, len(s.Days), s.Required)
}

// GateMessage is the field message shown when the day count is wrong.
func GateMessage(required int) string {
	unit := "days"
	if required == 1 {
		unit = "day"
	}
	return fmt.Sprintf("Please select exactly %d delivery %s", required, unit)
}

// Window produces the bookable days relative to the current date in a
// fixed timezone. Candidates are recomputed on every call.
type Window struct {
	loc *time.Location
	now func() time.Time
}

// NewWindow builds a Window; a nil loc means UTC and a nil now means time.Now.
func NewWindow(loc *time.Location, now func() time.Time) Window {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Window{loc: loc, now: now}
}

func (w Window) today() time.Time {
	y, m, d := w.now().In(w.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, w.loc)
}

// Candidates lists tomorrow through today+31 in ascending order.
func (w Window) Candidates() []string {
	today := w.today()
	out := make([]string, 0, WindowDays)
	for i := 1; i <= WindowDays; i++ {
		out = append(out, today.AddDate(0, 0, i).Format(DateLayout))
	}
	return out
}

// Check verifies day is a well-formed date inside the window.
func (w Window) Check(day string) error {
	t, err := time.ParseInLocation(DateLayout, day, w.loc)
	if err != nil || t.Format(DateLayout) != day {
		return fmt.Errorf("%w: %q", ErrInvalidDay, day)
	}
	today := w.today()
	first := today.AddDate(0, 0, 1)
	last := today.AddDate(0, 0, WindowDays)
	if t.Before(first) || t.After(last) {
		return fmt.Errorf("%w: %s", ErrDayOutsideWindow, day)
	}
	return nil
}

// Contains reports whether day can currently be booked.
func (w Window) Contains(day string) bool {
	return w.Check(day) == nil
}
