package marketdata

import (
	"time"

	"quant-desk/internal/types"
)

const (
	HoursExchange   = "EXCHANGE"
	HoursAlwaysOpen = "ALWAYS_OPEN"
)

var (
	kst = time.FixedZone("KST", 9*60*60)
	et  = loadET()
)

// loadET falls back to a fixed EST offset when tzdata is unavailable.
func loadET() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("EST", -5*60*60)
}

// Hours answers whether each exchange session is open.
type Hours struct {
	Mode string
}

func (h Hours) Status(now time.Time) types.MarketStatus {
	if h.Mode == HoursAlwaysOpen {
		return types.MarketStatus{Korea: true, USA: true}
	}
	return types.MarketStatus{
		Korea: inSession(now.In(kst), 9*60, 15*60+30),
		USA:   inSession(now.In(et), 9*60+30, 16*60),
	}
}

// inSession checks weekday and [open, close) in minutes after midnight.
func inSession(t time.Time, open, close int) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= open && m < close
}
