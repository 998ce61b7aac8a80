// Package ldtime defines the timestamp type used throughout the evaluation and event pipeline.
package ldtime

import "time"

// UnixMillisecondTime is a timestamp expressed as milliseconds since the Unix epoch, the
// form used in the wire representation of every analytics event and in flag fields such as
// DebugEventsUntilDate.
type UnixMillisecondTime uint64

// UnixMillisFromTime converts a time.Time to UnixMillisecondTime.
func UnixMillisFromTime(t time.Time) UnixMillisecondTime {
	return UnixMillisecondTime(t.UnixNano() / int64(time.Millisecond))
}

// UnixMillisNow returns the current time as UnixMillisecondTime.
func UnixMillisNow() UnixMillisecondTime {
	return UnixMillisFromTime(time.Now())
}
