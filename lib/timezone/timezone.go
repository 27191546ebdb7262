package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Stockholm")
	if err != nil {
		panic(err)
	}
}

// force the timezone to the retailer's home market because collection
// schedules and day-bucketing are defined in storefront-local time, not
// wherever the server happens to run
func Now() time.Time {
	return time.Now().In(Location)
}

// StartOfDay truncates t to midnight in the retailer's home timezone.
func StartOfDay(t time.Time) time.Time {
	local := t.In(Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location)
}
