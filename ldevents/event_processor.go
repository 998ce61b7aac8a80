package ldevents

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/launchdarkly/go-eval-engine/ldlog"
	"github.com/launchdarkly/go-eval-engine/ldtime"
	"github.com/launchdarkly/go-eval-engine/lduser"
)

type defaultEventProcessor struct {
	inboxCh       chan eventDispatcherMessage
	inboxFullOnce sync.Once
	closeOnce     sync.Once
	loggers       ldlog.Loggers
}

type eventDispatcher struct {
	config             EventsConfiguration
	userKeys           lruCache
	lastKnownPastTime  ldtime.UnixMillisecondTime
	deduplicatedUsers  int
	eventsInLastBatch  int
	disabled           bool
	currentTimestampFn func() ldtime.UnixMillisecondTime
	stateLock          sync.Mutex
}

type flushPayload struct {
	diagnosticEvent interface{}
	events          []Event
	summary         eventSummary
}

// Payload of the inboxCh channel.
type eventDispatcherMessage interface{}

type sendEventMessage struct {
	event Event
}

type flushEventsMessage struct{}

type shutdownEventsMessage struct {
	replyCh chan struct{}
}

type syncEventsMessage struct {
	replyCh chan struct{}
}

const maxFlushWorkers = 5

// NewDefaultEventProcessor creates an instance of the default implementation of analytics event
// processing. Formatted payloads are handed off to config.EventSender; if none was configured, a
// default HTTP-based sender is built from EventsURI, DiagnosticURI, Headers, and HTTPClient.
func NewDefaultEventProcessor(config EventsConfiguration) EventProcessor {
	if config.EventSender == nil {
		config.EventSender = NewDefaultEventSender(
			config.HTTPClient, config.EventsURI, config.DiagnosticURI, config.Headers, config.Loggers)
	}
	inboxCh := make(chan eventDispatcherMessage, config.Capacity)
	startEventDispatcher(config, inboxCh)
	return &defaultEventProcessor{
		inboxCh: inboxCh,
		loggers: config.Loggers,
	}
}

func (ep *defaultEventProcessor) SendEvent(e Event) {
	ep.postNonBlockingMessageToInbox(sendEventMessage{event: e})
}

func (ep *defaultEventProcessor) Flush() {
	ep.postNonBlockingMessageToInbox(flushEventsMessage{})
}

func (ep *defaultEventProcessor) postNonBlockingMessageToInbox(e eventDispatcherMessage) bool {
	select {
	case ep.inboxCh <- e:
		return true
	default:
	}
	// If the inbox is full, the dispatcher is seriously backed up with unprocessed events, most
	// likely because the application is evaluating flags across many goroutines at a very high
	// rate. Waiting for room risks a serious app slowdown, so the event is dropped instead.
	ep.inboxFullOnce.Do(func() {
		ep.loggers.Warn("Events are being produced faster than they can be processed; some events will be dropped")
	})
	return false
}

func (ep *defaultEventProcessor) Close() error {
	ep.closeOnce.Do(func() {
		// Flush and shutdown messages are put directly into the channel rather than going through
		// postNonBlockingMessageToInbox, because an orderly shutdown does need to block for room.
		ep.inboxCh <- flushEventsMessage{}
		m := shutdownEventsMessage{replyCh: make(chan struct{})}
		ep.inboxCh <- m
		<-m.replyCh
	})
	return nil
}

// waitUntilInactive blocks until all in-flight flushes have completed. Used by tests that need
// deterministic ordering.
func (ep *defaultEventProcessor) waitUntilInactive() {
	m := syncEventsMessage{replyCh: make(chan struct{})}
	ep.inboxCh <- m
	<-m.replyCh
}

func startEventDispatcher(config EventsConfiguration, inboxCh <-chan eventDispatcherMessage) {
	timestampFn := config.currentTimeProvider
	if timestampFn == nil {
		timestampFn = ldtime.UnixMillisNow
	}
	ed := &eventDispatcher{
		config:             config,
		userKeys:           newLruCache(config.UserKeysCapacity),
		currentTimestampFn: timestampFn,
	}

	// Start a fixed-size pool of workers that wait on flushCh. This is the maximum number of
	// flushes that can be in flight concurrently.
	flushCh := make(chan *flushPayload, 1)
	var workersGroup sync.WaitGroup
	for i := 0; i < maxFlushWorkers; i++ {
		go runFlushTask(config, flushCh, &workersGroup, ed.handleResult)
	}
	if config.DiagnosticsManager != nil {
		event := config.DiagnosticsManager.CreateInitEvent()
		ed.sendDiagnosticsEvent(event, flushCh, &workersGroup)
	}
	go ed.runMainLoop(inboxCh, flushCh, &workersGroup)
}

func (ed *eventDispatcher) runMainLoop(
	inboxCh <-chan eventDispatcherMessage,
	flushCh chan<- *flushPayload,
	workersGroup *sync.WaitGroup,
) {
	if err := recover(); err != nil {
		ed.config.Loggers.Errorf("Unexpected panic in event processing thread: %+v", err)
	}

	outbox := newEventsOutbox(ed.config.Capacity, ed.config.Loggers)

	flushInterval := ed.config.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	userKeysFlushInterval := ed.config.UserKeysFlushInterval
	if userKeysFlushInterval <= 0 {
		userKeysFlushInterval = DefaultUserKeysFlushInterval
	}
	flushTicker := time.NewTicker(flushInterval)
	usersResetTicker := time.NewTicker(userKeysFlushInterval)

	var diagnosticsTicker *time.Ticker
	var diagnosticsTickerCh <-chan time.Time
	diagnosticsManager := ed.config.DiagnosticsManager
	if diagnosticsManager != nil {
		interval := ed.config.DiagnosticRecordingInterval
		if interval < MinimumDiagnosticRecordingInterval {
			interval = DefaultDiagnosticRecordingInterval
		}
		if ed.config.forceDiagnosticRecordingInterval > 0 {
			interval = ed.config.forceDiagnosticRecordingInterval
		}
		diagnosticsTicker = time.NewTicker(interval)
		diagnosticsTickerCh = diagnosticsTicker.C
	}

	for {
		// Drain the inbox with higher priority than the tickers, so flush workers don't stall.
		select {
		case message := <-inboxCh:
			switch m := message.(type) {
			case sendEventMessage:
				ed.processEvent(m.event, outbox, &ed.userKeys)
			case flushEventsMessage:
				ed.triggerFlush(outbox, flushCh, workersGroup)
			case syncEventsMessage:
				workersGroup.Wait()
				m.replyCh <- struct{}{}
			case shutdownEventsMessage:
				flushTicker.Stop()
				usersResetTicker.Stop()
				if diagnosticsTicker != nil {
					diagnosticsTicker.Stop()
				}
				workersGroup.Wait() // Wait for all in-progress flushes to complete
				close(flushCh)      // Causes all idle flush workers to terminate
				m.replyCh <- struct{}{}
				return
			}
		case <-flushTicker.C:
			ed.triggerFlush(outbox, flushCh, workersGroup)
		case <-usersResetTicker.C:
			ed.userKeys.clear()
		case <-diagnosticsTickerCh:
			if diagnosticsManager == nil || !diagnosticsManager.CanSendStatsEvent() {
				break
			}
			event := diagnosticsManager.CreateStatsEventAndReset(
				outbox.droppedEvents,
				ed.deduplicatedUsers,
				ed.eventsInLastBatch,
			)
			outbox.droppedEvents = 0
			ed.deduplicatedUsers = 0
			ed.eventsInLastBatch = 0
			ed.sendDiagnosticsEvent(event, flushCh, workersGroup)
		}
	}
}

func (ed *eventDispatcher) processEvent(evt Event, outbox *eventsOutbox, userKeys *lruCache) {
	// Always record the event in the summarizer.
	outbox.addToSummary(evt)

	// Decide whether to add the event to the payload. Feature events may be added twice: once for
	// the tracked event, once for its debug copy.
	willAddFullEvent := false
	var debugEvent Event
	switch evt := evt.(type) {
	case FeatureRequestEvent:
		willAddFullEvent = evt.TrackEvents
		if ed.shouldDebugEvent(&evt) {
			de := evt
			de.Debug = true
			debugEvent = de
		}
	default:
		willAddFullEvent = true
	}

	// For each user we haven't seen before, add an index event, unless this is already an
	// identify event for that user or the full event will inline the user anyway.
	if !(willAddFullEvent && ed.config.InlineUsersInEvents) {
		user := evt.GetBase().User
		if noticeUser(userKeys, &user) {
			ed.deduplicatedUsers++
		} else {
			if _, ok := evt.(IdentifyEvent); !ok {
				indexEvent := IndexEvent{
					BaseEvent{CreationDate: evt.GetBase().CreationDate, User: user},
				}
				outbox.addEvent(indexEvent)
			}
		}
	}
	if willAddFullEvent {
		outbox.addEvent(evt)
	}
	if debugEvent != nil {
		outbox.addEvent(debugEvent)
	}
}

// noticeUser adds to the set of users seen so far, and reports whether it was already known.
func noticeUser(userKeys *lruCache, user *lduser.User) bool {
	if user == nil {
		return true
	}
	return userKeys.add(user.GetKey())
}

func (ed *eventDispatcher) shouldDebugEvent(evt *FeatureRequestEvent) bool {
	if evt.DebugEventsUntilDate == 0 {
		return false
	}
	// The "last known past time" comes from the last response we got from the events service. In
	// case the client's own clock is wrong, any expiration date earlier than that point is
	// definitely in the past, erring on the side of cutting off debugging sooner.
	ed.stateLock.Lock()
	defer ed.stateLock.Unlock()
	return evt.DebugEventsUntilDate > ed.lastKnownPastTime && evt.DebugEventsUntilDate > ed.currentTimestampFn()
}

// triggerFlush signals that a flush should happen as soon as possible.
func (ed *eventDispatcher) triggerFlush(outbox *eventsOutbox, flushCh chan<- *flushPayload, workersGroup *sync.WaitGroup) {
	if ed.isDisabled() {
		outbox.clear()
		return
	}
	payload := outbox.getPayload()
	totalEventCount := len(payload.events)
	if len(payload.summary.counters) > 0 {
		totalEventCount++
	}
	if totalEventCount == 0 {
		ed.eventsInLastBatch = 0
		return
	}
	workersGroup.Add(1)
	select {
	case flushCh <- &payload:
		// A worker picked it up; the outbox and summary state can be cleared from this goroutine.
		ed.eventsInLastBatch = totalEventCount
		outbox.clear()
	default:
		// All workers are still busy with a previous flush; keep accumulating.
		workersGroup.Done()
	}
}

func (ed *eventDispatcher) isDisabled() bool {
	ed.stateLock.Lock()
	defer ed.stateLock.Unlock()
	return ed.disabled
}

func (ed *eventDispatcher) handleResult(result EventSenderResult) {
	ed.stateLock.Lock()
	defer ed.stateLock.Unlock()
	if result.MustShutDown {
		ed.disabled = true
	}
	if result.TimeFromServer != 0 {
		ed.lastKnownPastTime = result.TimeFromServer
	}
}

func (ed *eventDispatcher) sendDiagnosticsEvent(event interface{}, flushCh chan<- *flushPayload, workersGroup *sync.WaitGroup) {
	payload := flushPayload{diagnosticEvent: event}
	workersGroup.Add(1)
	select {
	case flushCh <- &payload:
	default:
		// Diagnostic data is nonessential; if no worker is free, drop it rather than create
		// backpressure on real analytics events. Another periodic event follows later anyway.
		workersGroup.Done()
	}
}

// runFlushTask is the body of one of the fixed-size pool of flush worker goroutines. Each worker
// owns its own eventOutputFormatter and loops until flushCh is closed at shutdown.
func runFlushTask(
	config EventsConfiguration,
	flushCh <-chan *flushPayload,
	workersGroup *sync.WaitGroup,
	resultFn func(EventSenderResult),
) {
	formatter := eventOutputFormatter{
		userFilter: newUserFilter(config),
		config:     config,
	}
	for payload := range flushCh {
		if payload.diagnosticEvent != nil {
			data, err := json.Marshal(payload.diagnosticEvent)
			if err != nil {
				config.Loggers.Errorf("Unexpected error marshalling diagnostic event json: %+v", err)
			} else {
				config.EventSender.SendEventData(DiagnosticEventDataKind, data, 1)
			}
		} else {
			outputEvents := formatter.makeOutputEvents(payload.events, payload.summary)
			if len(outputEvents) > 0 {
				data, err := json.Marshal(outputEvents)
				if err != nil {
					config.Loggers.Errorf("Unexpected error marshalling event json: %+v", err)
				} else {
					result := config.EventSender.SendEventData(AnalyticsEventDataKind, data, len(outputEvents))
					resultFn(result)
				}
			}
		}
		workersGroup.Done()
	}
}
