package work

import (
	"time"

	"github.com/go-co-op/gocron"
)

func NewCronScheduler(timeZone string) *gocron.Scheduler {
	location, err := time.LoadLocation(timeZone)
	if err != nil {
		logg.Warnf("unknown time zone %q, using UTC: %v", timeZone, err)
		location = time.UTC
	}

	scheduler := gocron.NewScheduler(location)
	scheduler.TagsUnique()

	return scheduler
}
