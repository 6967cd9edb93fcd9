package markethours

import "time"

// NSE trading holidays for 2026 (NSE India official list; some tentative).
// Encoded as month*100+day for direct lookup.
var nseHolidays2026 = map[int]string{
	126:  "Republic Day",
	217:  "Mahashivratri (tentative)",
	314:  "Holi",
	331:  "Id-ul-Fitr (tentative)",
	402:  "Ram Navami (tentative)",
	406:  "Mahavir Jayanti",
	410:  "Good Friday",
	414:  "Dr. Ambedkar Jayanti",
	501:  "Maharashtra Day",
	607:  "Bakrid / Eid ul-Adha (tentative)",
	706:  "Muharram (tentative)",
	815:  "Independence Day",
	816:  "Janmashtami (tentative)",
	905:  "Milad-un-Nabi (tentative)",
	1002: "Mahatma Gandhi Jayanti",
	1020: "Dussehra",
	1021: "Dussehra (tentative)",
	1105: "Diwali / Lakshmi Puja (tentative)",
	1106: "Diwali Balipratipada (tentative)",
	1107: "Bhai Dooj (tentative)",
	1119: "Guru Nanak Jayanti",
	1225: "Christmas",
}

// IsHoliday returns true if the date (in IST) is an NSE holiday.
// Only the current holiday calendar year is covered; other years
// fall back to weekday-only scheduling.
func IsHoliday(t time.Time) bool {
	ist := t.In(IST)
	if ist.Year() != 2026 {
		return false
	}
	_, ok := nseHolidays2026[int(ist.Month())*100+ist.Day()]
	return ok
}

// HolidayName returns the holiday name for the date, or "" if none.
func HolidayName(t time.Time) string {
	ist := t.In(IST)
	if ist.Year() != 2026 {
		return ""
	}
	return nseHolidays2026[int(ist.Month())*100+ist.Day()]
}
