package ldevents

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/launchdarkly/go-eval-engine/ldtime"
	"github.com/launchdarkly/go-eval-engine/lduser"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

var epDefaultConfig = EventsConfiguration{
	Capacity:              1000,
	FlushInterval:         1 * time.Hour,
	UserKeysCapacity:      1000,
	UserKeysFlushInterval: 1 * time.Hour,
}

var epDefaultUser = lduser.NewUserBuilder("userKey").Name("Red").Build()

var userJSON = ldvalue.ObjectBuild().
	Set("key", ldvalue.String("userKey")).
	Set("name", ldvalue.String("Red")).
	Build()
var filteredUserJSON = ldvalue.ObjectBuild().
	Set("key", ldvalue.String("userKey")).
	Set("privateAttrs", ldvalue.ArrayOf(ldvalue.String("name"))).
	Build()

const sdkKey = "SDK_KEY"

func TestIdentifyEventIsQueued(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	ie := defaultEventFactory.NewIdentifyEvent(epDefaultUser)
	ep.SendEvent(ie)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 1, len(es.events)) {
		assert.Equal(t, expectedIdentifyEvent(ie, userJSON), decode(es.events[0]))
	}
}

func TestUserDetailsAreScrubbedInIdentifyEvent(t *testing.T) {
	config := epDefaultConfig
	config.AllAttributesPrivate = true
	ep, es := createEventProcessorAndSender(config)
	defer ep.Close()

	ie := defaultEventFactory.NewIdentifyEvent(epDefaultUser)
	ep.SendEvent(ie)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 1, len(es.events)) {
		assert.Equal(t, expectedIdentifyEvent(ie, filteredUserJSON), decode(es.events[0]))
	}
}

func TestFeatureEventIsSummarizedAndNotTrackedByDefault(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	flag := flagEventPropertiesImpl{Key: "flagkey", Version: 11}
	value := ldvalue.String("value")
	fe := defaultEventFactory.NewSuccessfulEvalEvent(flag, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	ep.SendEvent(fe)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 2, len(es.events)) {
		assert.Equal(t, expectedIndexEvent(fe, userJSON), decode(es.events[0]))
		assertSummaryEventHasCounter(t, flag, 2, value, 1, decode(es.events[1]))
	}
}

func TestIndividualFeatureEventIsQueuedWhenTrackEventsIsTrue(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	flag := flagEventPropertiesImpl{Key: "flagkey", Version: 11, TrackEvents: true}
	value := ldvalue.String("value")
	fe := defaultEventFactory.NewSuccessfulEvalEvent(flag, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	ep.SendEvent(fe)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 3, len(es.events)) {
		assert.Equal(t, expectedIndexEvent(fe, userJSON), decode(es.events[0]))
		assert.Equal(t, expectedFeatureEvent(fe, flag, value, false, nil), decode(es.events[1]))
		assertSummaryEventHasCounter(t, flag, 2, value, 1, decode(es.events[2]))
	}
}

func TestUserDetailsAreScrubbedInIndexEvent(t *testing.T) {
	config := epDefaultConfig
	config.AllAttributesPrivate = true
	ep, es := createEventProcessorAndSender(config)
	defer ep.Close()

	flag := flagEventPropertiesImpl{Key: "flagkey", Version: 11, TrackEvents: true}
	value := ldvalue.String("value")
	fe := defaultEventFactory.NewSuccessfulEvalEvent(flag, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	ep.SendEvent(fe)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 3, len(es.events)) {
		assert.Equal(t, expectedIndexEvent(fe, filteredUserJSON), decode(es.events[0]))
		assert.Equal(t, expectedFeatureEvent(fe, flag, value, false, nil), decode(es.events[1]))
		assertSummaryEventHasCounter(t, flag, 2, value, 1, decode(es.events[2]))
	}
}

func TestFeatureEventCanContainInlineUser(t *testing.T) {
	config := epDefaultConfig
	config.InlineUsersInEvents = true
	ep, es := createEventProcessorAndSender(config)
	defer ep.Close()

	flag := flagEventPropertiesImpl{Key: "flagkey", Version: 11, TrackEvents: true}
	value := ldvalue.String("value")
	fe := defaultEventFactory.NewSuccessfulEvalEvent(flag, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	ep.SendEvent(fe)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 2, len(es.events)) {
		assert.Equal(t, expectedFeatureEvent(fe, flag, value, false, &userJSON), decode(es.events[0]))
		assertSummaryEventHasCounter(t, flag, 2, value, 1, decode(es.events[1]))
	}
}

func TestDebugEventIsAddedIfFlagIsTemporarilyInDebugMode(t *testing.T) {
	fakeTimeNow := ldtime.UnixMillisecondTime(1000000)
	config := epDefaultConfig
	config.currentTimeProvider = func() ldtime.UnixMillisecondTime { return fakeTimeNow }
	eventFactory := NewEventFactory(false, config.currentTimeProvider)

	ep, es := createEventProcessorAndSender(config)
	defer ep.Close()

	flag := flagEventPropertiesImpl{
		Key: "flagkey", Version: 11, TrackEvents: false,
		DebugEventsUntilDate: fakeTimeNow + 100,
	}
	value := ldvalue.String("value")
	fe := eventFactory.NewSuccessfulEvalEvent(flag, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	ep.SendEvent(fe)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 3, len(es.events)) {
		assert.Equal(t, expectedIndexEvent(fe, userJSON), decode(es.events[0]))
		assert.Equal(t, expectedFeatureEvent(fe, flag, value, true, &userJSON), decode(es.events[1]))
		assertSummaryEventHasCounter(t, flag, 2, value, 1, decode(es.events[2]))
	}
}

func TestEventCanBeBothTrackedAndDebugged(t *testing.T) {
	fakeTimeNow := ldtime.UnixMillisecondTime(1000000)
	config := epDefaultConfig
	config.currentTimeProvider = func() ldtime.UnixMillisecondTime { return fakeTimeNow }
	eventFactory := NewEventFactory(false, config.currentTimeProvider)

	ep, es := createEventProcessorAndSender(config)
	defer ep.Close()

	flag := flagEventPropertiesImpl{
		Key: "flagkey", Version: 11, TrackEvents: true,
		DebugEventsUntilDate: fakeTimeNow + 100,
	}
	value := ldvalue.String("value")
	fe := eventFactory.NewSuccessfulEvalEvent(flag, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	ep.SendEvent(fe)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 4, len(es.events)) {
		assert.Equal(t, expectedIndexEvent(fe, userJSON), decode(es.events[0]))
		assert.Equal(t, expectedFeatureEvent(fe, flag, value, false, nil), decode(es.events[1]))
		assert.Equal(t, expectedFeatureEvent(fe, flag, value, true, &userJSON), decode(es.events[2]))
		assertSummaryEventHasCounter(t, flag, 2, value, 1, decode(es.events[3]))
	}
}

func TestTwoFeatureEventsForSameUserGenerateOnlyOneIndexEvent(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	flag1 := flagEventPropertiesImpl{Key: "flagkey1", Version: 11, TrackEvents: true}
	flag2 := flagEventPropertiesImpl{Key: "flagkey2", Version: 22, TrackEvents: true}
	value := ldvalue.String("value")
	fe1 := defaultEventFactory.NewSuccessfulEvalEvent(flag1, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	fe2 := defaultEventFactory.NewSuccessfulEvalEvent(flag2, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	ep.SendEvent(fe1)
	ep.SendEvent(fe2)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 4, len(es.events)) {
		assert.Equal(t, expectedIndexEvent(fe1, userJSON), decode(es.events[0]))
		assert.Equal(t, expectedFeatureEvent(fe1, flag1, value, false, nil), decode(es.events[1]))
		assert.Equal(t, expectedFeatureEvent(fe2, flag2, value, false, nil), decode(es.events[2]))
		summary := decode(es.events[3])
		assertSummaryEventHasCounter(t, flag1, 2, value, 1, summary)
		assertSummaryEventHasCounter(t, flag2, 2, value, 1, summary)
	}
}

func TestNonTrackedEventsAreSummarized(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	flag1 := flagEventPropertiesImpl{Key: "flagkey1", Version: 11}
	flag2 := flagEventPropertiesImpl{Key: "flagkey2", Version: 22}
	value := ldvalue.String("value")
	fe1 := defaultEventFactory.NewSuccessfulEvalEvent(flag1, epDefaultUser, 2, value, ldvalue.Null(), noReason, "")
	fe2 := defaultEventFactory.NewSuccessfulEvalEvent(flag2, epDefaultUser, 3, value, ldvalue.Null(), noReason, "")
	fe3 := defaultEventFactory.NewSuccessfulEvalEvent(flag2, epDefaultUser, 3, value, ldvalue.Null(), noReason, "")
	ep.SendEvent(fe1)
	ep.SendEvent(fe2)
	ep.SendEvent(fe3)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 2, len(es.events)) {
		assert.Equal(t, expectedIndexEvent(fe1, userJSON), decode(es.events[0]))

		summary := decode(es.events[1])
		assertSummaryEventHasCounter(t, flag1, 2, value, 1, summary)
		assertSummaryEventHasCounter(t, flag2, 3, value, 2, summary)
		assert.Equal(t, float64(fe1.CreationDate), summary.GetByKey("startDate").Float64Value())
		assert.Equal(t, float64(fe3.CreationDate), summary.GetByKey("endDate").Float64Value())
	}
}

func TestCustomEventIsQueuedWithUser(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	data := ldvalue.ObjectBuild().Set("thing", ldvalue.String("stuff")).Build()
	ce := defaultEventFactory.NewCustomEvent("eventkey", epDefaultUser, data, false, 0)
	ep.SendEvent(ce)
	ep.Flush()
	ep.waitUntilInactive()

	if assert.Equal(t, 2, len(es.events)) {
		assert.Equal(t, expectedIndexEvent(ce, userJSON), decode(es.events[0]))

		expected := ldvalue.ObjectBuild().
			Set("kind", ldvalue.String("custom")).
			Set("creationDate", ldvalue.Float64(float64(ce.CreationDate))).
			Set("key", ldvalue.String(ce.Key)).
			Set("data", data).
			Set("userKey", ldvalue.String(epDefaultUser.GetKey())).
			Build()
		assert.Equal(t, expected, decode(es.events[1]))
	}
}

func TestClosingEventProcessorForcesSynchronousFlush(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	ie := defaultEventFactory.NewIdentifyEvent(epDefaultUser)
	ep.SendEvent(ie)
	ep.Close()

	if assert.Equal(t, 1, len(es.events)) {
		assert.Equal(t, expectedIdentifyEvent(ie, userJSON), decode(es.events[0]))
	}
}

func TestNothingIsSentIfThereAreNoEvents(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	ep.Flush()
	ep.waitUntilInactive()

	assert.Equal(t, 0, len(es.events))
}

func TestEventProcessorStopsSendingEventsAfterUnrecoverableError(t *testing.T) {
	ep, es := createEventProcessorAndSender(epDefaultConfig)
	defer ep.Close()

	es.result = EventSenderResult{MustShutDown: true}

	ie := defaultEventFactory.NewIdentifyEvent(epDefaultUser)
	ep.SendEvent(ie)
	ep.Flush()
	ep.waitUntilInactive()

	assert.Equal(t, 1, len(es.events))

	ep.SendEvent(ie)
	ep.Flush()
	ep.waitUntilInactive()

	assert.Equal(t, 1, len(es.events)) // no additional payload was sent
}

func TestDiagnosticInitEventIsSent(t *testing.T) {
	id := NewDiagnosticID("sdkkey")
	startTime := ldtime.UnixMillisNow()
	diagnosticsManager := NewDiagnosticsManager(id, ldvalue.Null(), ldvalue.Null(), startTime, nil)
	config := epDefaultConfig
	config.DiagnosticsManager = diagnosticsManager

	ep, es := createEventProcessorAndSender(config)
	defer ep.Close()
	ep.waitUntilInactive()

	if assert.Equal(t, 1, len(es.diagnosticEvents)) {
		event := decode(es.diagnosticEvents[0])
		assert.Equal(t, "diagnostic-init", event.GetByKey("kind").StringValue())
		assert.Equal(t, float64(startTime), event.GetByKey("creationDate").Float64Value())
	}
}

func TestDiagnosticPeriodicEventHasEventCounters(t *testing.T) {
	id := NewDiagnosticID("sdkkey")
	config := epDefaultConfig
	config.Capacity = 3
	config.forceDiagnosticRecordingInterval = 100 * time.Millisecond
	periodicEventGate := make(chan struct{})

	diagnosticsManager := NewDiagnosticsManager(id, ldvalue.Null(), ldvalue.Null(), ldtime.UnixMillisNow(), periodicEventGate)
	config.DiagnosticsManager = diagnosticsManager

	ep, es := createEventProcessorAndSender(config)
	defer ep.Close()

	initEvent := decode(<-es.diagnosticEventsCh)
	assert.Equal(t, "diagnostic-init", initEvent.GetByKey("kind").StringValue())

	ep.SendEvent(defaultEventFactory.NewCustomEvent("key", lduser.NewUser("userkey"), ldvalue.Null(), false, 0))
	ep.SendEvent(defaultEventFactory.NewCustomEvent("key", lduser.NewUser("userkey"), ldvalue.Null(), false, 0))
	ep.SendEvent(defaultEventFactory.NewCustomEvent("key", lduser.NewUser("userkey"), ldvalue.Null(), false, 0))
	ep.Flush()

	periodicEventGate <- struct{}{} // periodic event won't be sent until we do this

	event1 := decode(<-es.diagnosticEventsCh)
	assert.Equal(t, "diagnostic", event1.GetByKey("kind").StringValue())
	assert.Equal(t, 3, event1.GetByKey("eventsInLastBatch").IntValue()) // 1 index, 2 custom
	assert.Equal(t, 1, event1.GetByKey("droppedEvents").IntValue())     // 3rd custom event was dropped
	assert.Equal(t, 2, event1.GetByKey("deduplicatedUsers").IntValue())

	periodicEventGate <- struct{}{}

	event2 := decode(<-es.diagnosticEventsCh) // next periodic event - all counters should have been reset
	assert.Equal(t, "diagnostic", event2.GetByKey("kind").StringValue())
	assert.Equal(t, 0, event2.GetByKey("eventsInLastBatch").IntValue())
	assert.Equal(t, 0, event2.GetByKey("droppedEvents").IntValue())
	assert.Equal(t, 0, event2.GetByKey("deduplicatedUsers").IntValue())
}

func decode(raw json.RawMessage) ldvalue.Value {
	var v ldvalue.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		panic(err)
	}
	return v
}

func jsonEncoding(o interface{}) ldvalue.Value {
	bytes, err := json.Marshal(o)
	if err != nil {
		panic(err)
	}
	var result ldvalue.Value
	_ = json.Unmarshal(bytes, &result)
	return result
}

func expectedIdentifyEvent(sourceEvent Event, encodedUser ldvalue.Value) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("identify")).
		Set("key", ldvalue.String(sourceEvent.GetBase().User.GetKey())).
		Set("creationDate", ldvalue.Float64(float64(sourceEvent.GetBase().CreationDate))).
		Set("user", encodedUser).
		Build()
}

func expectedIndexEvent(sourceEvent Event, encodedUser ldvalue.Value) ldvalue.Value {
	return ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("index")).
		Set("creationDate", ldvalue.Float64(float64(sourceEvent.GetBase().CreationDate))).
		Set("user", encodedUser).
		Build()
}

func expectedFeatureEvent(sourceEvent FeatureRequestEvent, flag flagEventPropertiesImpl,
	value ldvalue.Value, debug bool, inlineUser *ldvalue.Value) ldvalue.Value {
	kind := "feature"
	if debug {
		kind = "debug"
	}
	expected := ldvalue.ObjectBuild().
		Set("kind", ldvalue.String(kind)).
		Set("key", ldvalue.String(flag.Key)).
		Set("creationDate", ldvalue.Float64(float64(sourceEvent.GetBase().CreationDate))).
		Set("version", ldvalue.Int(flag.Version)).
		Set("value", value).
		Set("default", ldvalue.Null())
	if sourceEvent.Variation != NoVariation {
		expected.Set("variation", ldvalue.Int(sourceEvent.Variation))
	}
	if sourceEvent.Reason.GetKind() != "" {
		expected.Set("reason", jsonEncoding(sourceEvent.Reason))
	}
	if inlineUser == nil {
		expected.Set("userKey", ldvalue.String(sourceEvent.User.GetKey()))
	} else {
		expected.Set("user", *inlineUser)
	}
	return expected.Build()
}

func assertSummaryEventHasFlag(t *testing.T, flag flagEventPropertiesImpl, output ldvalue.Value) bool {
	if assert.Equal(t, "summary", output.GetByKey("kind").StringValue()) {
		flags := output.GetByKey("features")
		return !flags.GetByKey(flag.Key).IsNull()
	}
	return false
}

func assertSummaryEventHasCounter(t *testing.T, flag flagEventPropertiesImpl, variation int, value ldvalue.Value, count int, output ldvalue.Value) {
	if assertSummaryEventHasFlag(t, flag, output) {
		f := output.GetByKey("features").GetByKey(flag.Key)
		assert.Equal(t, ldvalue.ObjectType, f.Type())
		expected := ldvalue.ObjectBuild().Set("value", value).Set("count", ldvalue.Int(count)).Set("version", ldvalue.Int(flag.Version))
		if variation >= 0 {
			expected.Set("variation", ldvalue.Int(variation))
		}
		var counters []ldvalue.Value
		f.GetByKey("counters").Enumerate(func(i int, k string, v ldvalue.Value) bool {
			counters = append(counters, v)
			return true
		})
		assert.Contains(t, counters, expected.Build())
	}
}

func createEventProcessorAndSender(config EventsConfiguration) (*defaultEventProcessor, *mockEventSender) {
	sender := newMockEventSender()
	config.EventSender = sender
	ep := NewDefaultEventProcessor(config)
	return ep.(*defaultEventProcessor), sender
}
