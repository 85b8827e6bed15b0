package usecase

import (
	"fmt"
	"time"
)

const DefaultMessage = "祝你順心 😊"

var weekdayGlyphs = []string{"一", "二", "三", "四", "五", "六", "日"}

// greetingFor picks morning (05-11), afternoon (12-17) or evening wording.
func greetingFor(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "早安"
	case hour >= 12 && hour < 18:
		return "午安"
	default:
		return "晚安"
	}
}

// ComposeGreeting renders the daily text for now, which should already be in
// the audience's time zone. An empty body falls back to DefaultMessage.
func ComposeGreeting(now time.Time, body string) string {
	if body == "" {
		body = DefaultMessage
	}
	// time.Weekday starts on Sunday; glyphs start on Monday.
	wd := weekdayGlyphs[(int(now.Weekday())+6)%7]
	return fmt.Sprintf("%s～今天是 %s（%s）\n%s", greetingFor(now.Hour()), now.Format("2006-01-02"), wd, body)
}
