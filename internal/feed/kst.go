package feed

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

var seoul = loadSeoul()

func loadSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// FormatKST renders t the way a ko-KR locale shows local time in Seoul,
// e.g. "2026. 10. 18. 오후 3:04:05".
func FormatKST(t time.Time) string {
	t = t.In(seoul)

	meridiem := "오전"
	hour := t.Hour()
	if hour >= 12 {
		meridiem = "오후"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}

	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d",
		t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute(), t.Second())
}
