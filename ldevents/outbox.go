package ldevents

import "github.com/launchdarkly/go-eval-engine/ldlog"

// eventsOutbox buffers the individual events awaiting the next flush, along with the running
// summary counters, and enforces the configured capacity limit.
type eventsOutbox struct {
	events           []Event
	summarizer       eventSummarizer
	capacity         int
	capacityExceeded bool
	droppedEvents    int
	loggers          ldlog.Loggers
}

func newEventsOutbox(capacity int, loggers ldlog.Loggers) *eventsOutbox {
	return &eventsOutbox{
		events:     make([]Event, 0, capacity),
		summarizer: newEventSummarizer(),
		capacity:   capacity,
		loggers:    loggers,
	}
}

func (eb *eventsOutbox) addEvent(event Event) {
	if len(eb.events) >= eb.capacity {
		if !eb.capacityExceeded {
			eb.capacityExceeded = true
			eb.loggers.Warn("Exceeded event queue capacity. Increase capacity to avoid dropping events.")
		}
		eb.droppedEvents++
		return
	}
	eb.capacityExceeded = false
	eb.events = append(eb.events, event)
}

func (eb *eventsOutbox) addToSummary(event Event) {
	eb.summarizer.summarizeEvent(event)
}

func (eb *eventsOutbox) getPayload() flushPayload {
	return flushPayload{
		events:  eb.events,
		summary: eb.summarizer.snapshot(),
	}
}

func (eb *eventsOutbox) clear() {
	eb.events = make([]Event, 0, eb.capacity)
	eb.summarizer.reset()
}
