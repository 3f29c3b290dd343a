package core

import "time"

// cet is a fixed UTC+1 zone; prompts never consult the tz database.
var cet = time.FixedZone("CET", 60*60)

const timestampLayout = "2006-01-02 15:04:05 MST"

func timestamp(now time.Time) string {
	return now.In(cet).Format(timestampLayout)
}
