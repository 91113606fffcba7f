package timeclass

import "time"

// referenceZone is the fixed calendar zone for all derived attributes. The
// index tracks activity around Washington, DC, so classification never uses
// the host timezone.
const referenceZone = "America/New_York"

const (
	workdayStartHour = 6
	workdayEndHour   = 18
)

var refLocation *time.Location

func init() {
	loc, err := time.LoadLocation(referenceZone)
	if err != nil {
		panic("timeclass: load reference timezone: " + err.Error())
	}
	refLocation = loc
}

// Classification holds the calendar attributes derived from one instant.
type Classification struct {
	HourOfDay  int
	Weekday    int
	IsOvertime bool
	IsWeekend  bool
}

// Classify derives hour-of-day, weekday (0=Sunday), and the overtime/weekend
// flags for the reference timezone.
func Classify(t time.Time) Classification {
	local := t.In(refLocation)
	hour := local.Hour()
	weekday := int(local.Weekday())

	return Classification{
		HourOfDay:  hour,
		Weekday:    weekday,
		IsOvertime: hour < workdayStartHour || hour >= workdayEndHour,
		IsWeekend:  weekday == int(time.Sunday) || weekday == int(time.Saturday),
	}
}
