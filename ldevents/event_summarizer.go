package ldevents

import (
	"github.com/launchdarkly/go-eval-engine/ldtime"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// counterKey identifies one bucket of the event summary: a single flag key, variation index, and
// flag version. Distinct flag versions are tracked separately so that a summary event spanning a
// flag-version change during its window still attributes each variation count to the right version.
type counterKey struct {
	key       string
	variation int
	version   int
}

type counterValue struct {
	count      int
	flagValue  ldvalue.Value
	flagDefault ldvalue.Value
}

// eventSummary is a point-in-time snapshot of the counters accumulated since the last flush or
// reset, bounded by the earliest and latest event timestamps that contributed to it.
type eventSummary struct {
	counters  map[counterKey]*counterValue
	startDate ldtime.UnixMillisecondTime
	endDate   ldtime.UnixMillisecondTime
}

func newEventSummary() eventSummary {
	return eventSummary{counters: make(map[counterKey]*counterValue)}
}

// eventSummarizer accumulates feature request events into per-flag counters. It is not safe for
// concurrent use; the event dispatcher owns it from a single goroutine.
type eventSummarizer struct {
	eventsState eventSummary
}

func newEventSummarizer() eventSummarizer {
	return eventSummarizer{eventsState: newEventSummary()}
}

// summarizeEvent updates the relevant counter for a feature request event. Other event kinds do
// not contribute to the summary.
func (s *eventSummarizer) summarizeEvent(evt Event) {
	fe, ok := evt.(FeatureRequestEvent)
	if !ok {
		return
	}
	key := counterKey{key: fe.Key, variation: fe.Variation, version: fe.Version}
	if cv, exists := s.eventsState.counters[key]; exists {
		cv.count++
	} else {
		s.eventsState.counters[key] = &counterValue{
			count:       1,
			flagValue:   fe.Value,
			flagDefault: fe.Default,
		}
	}
	date := fe.CreationDate
	if s.eventsState.startDate == 0 || date < s.eventsState.startDate {
		s.eventsState.startDate = date
	}
	if date > s.eventsState.endDate {
		s.eventsState.endDate = date
	}
}

// snapshot returns the current accumulated state without clearing it.
func (s *eventSummarizer) snapshot() eventSummary {
	return s.eventsState
}

// reset clears all accumulated counters, normally called right after a flush has taken a snapshot.
func (s *eventSummarizer) reset() {
	s.eventsState = newEventSummary()
}
