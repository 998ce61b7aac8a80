package ldevents

import (
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/launchdarkly/go-eval-engine/ldtime"
	"github.com/launchdarkly/go-eval-engine/ldvalue"
)

// NewDiagnosticID creates the "id" object that is included in every diagnostic event, combining a
// random UUID with the last 6 characters of the SDK key so that events from the same SDK instance
// can be correlated without exposing the full key.
func NewDiagnosticID(sdkKey string) ldvalue.Value {
	u, _ := uuid.NewRandom()
	builder := ldvalue.ObjectBuild().Set("diagnosticId", ldvalue.String(u.String()))
	if len(sdkKey) > 6 {
		builder.Set("sdkKeySuffix", ldvalue.String(sdkKey[len(sdkKey)-6:]))
	} else if sdkKey != "" {
		builder.Set("sdkKeySuffix", ldvalue.String(sdkKey))
	}
	return builder.Build()
}

type diagnosticStreamInitInfo struct {
	timestamp      ldtime.UnixMillisecondTime
	failed         bool
	durationMillis uint64
}

// DiagnosticsManager maintains the state needed to build diagnostic-init and periodic diagnostic
// events: the SDK/platform/configuration description sent once at startup, plus running counters
// that accumulate between periodic events and are reset each time a periodic event is built.
type DiagnosticsManager struct {
	id                ldvalue.Value
	configData        ldvalue.Value
	sdkData           ldvalue.Value
	startTime         ldtime.UnixMillisecondTime
	dataSinceTime     ldtime.UnixMillisecondTime
	streamInits       []diagnosticStreamInitInfo
	periodicEventGate <-chan struct{}
	lock              sync.Mutex
}

// NewDiagnosticsManager creates a DiagnosticsManager. periodicEventGate is test instrumentation
// only: production callers should pass nil.
func NewDiagnosticsManager(
	id ldvalue.Value,
	configData ldvalue.Value,
	sdkData ldvalue.Value,
	startTime ldtime.UnixMillisecondTime,
	periodicEventGate <-chan struct{},
) *DiagnosticsManager {
	return &DiagnosticsManager{
		id:                id,
		configData:        configData,
		sdkData:           sdkData,
		startTime:         startTime,
		dataSinceTime:     startTime,
		periodicEventGate: periodicEventGate,
	}
}

// RecordStreamInit records the outcome of an attempt to establish a streaming connection, to be
// included in the next periodic diagnostic event.
func (m *DiagnosticsManager) RecordStreamInit(timestamp ldtime.UnixMillisecondTime, failed bool, durationMillis uint64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.streamInits = append(m.streamInits, diagnosticStreamInitInfo{
		timestamp:      timestamp,
		failed:         failed,
		durationMillis: durationMillis,
	})
}

// CreateInitEvent builds the one-time diagnostic event sent when the event processor starts up.
func (m *DiagnosticsManager) CreateInitEvent() ldvalue.Value {
	platformData := ldvalue.ObjectBuild().
		Set("name", ldvalue.String("Go")).
		Set("goVersion", ldvalue.String(runtime.Version())).
		Set("osName", ldvalue.String(normalizeOSName(runtime.GOOS))).
		Set("osArch", ldvalue.String(runtime.GOARCH)).
		Build()
	return ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("diagnostic-init")).
		Set("id", m.id).
		Set("creationDate", ldvalue.Int(int(m.startTime))).
		Set("sdk", m.sdkData).
		Set("configuration", m.configData).
		Set("platform", platformData).
		Build()
}

// CanSendStatsEvent reports whether the periodic diagnostic event is allowed to be built yet. In
// production this is always true; tests that need to control timing pass a periodicEventGate.
func (m *DiagnosticsManager) CanSendStatsEvent() bool {
	if m.periodicEventGate != nil {
		select {
		case <-m.periodicEventGate:
			return true
		default:
			return false
		}
	}
	return true
}

// CreateStatsEventAndReset builds the periodic diagnostic event and resets the counters that
// accumulate between periodic events. droppedEvents, deduplicatedUsers, and eventsInLastBatch are
// owned by the event dispatcher rather than the manager, since they require frequent updates that
// would otherwise mean locking the manager on every processed event.
func (m *DiagnosticsManager) CreateStatsEventAndReset(
	droppedEvents int,
	deduplicatedUsers int,
	eventsInLastBatch int,
) ldvalue.Value {
	m.lock.Lock()
	defer m.lock.Unlock()
	timestamp := ldtime.UnixMillisNow()
	streamInits := ldvalue.ArrayBuild()
	for _, si := range m.streamInits {
		streamInits.Add(ldvalue.ObjectBuild().
			Set("timestamp", ldvalue.Int(int(si.timestamp))).
			Set("failed", ldvalue.Bool(si.failed)).
			Set("durationMillis", ldvalue.Int(int(si.durationMillis))).
			Build())
	}
	event := ldvalue.ObjectBuild().
		Set("kind", ldvalue.String("diagnostic")).
		Set("id", m.id).
		Set("creationDate", ldvalue.Int(int(timestamp))).
		Set("dataSinceDate", ldvalue.Int(int(m.dataSinceTime))).
		Set("droppedEvents", ldvalue.Int(droppedEvents)).
		Set("deduplicatedUsers", ldvalue.Int(deduplicatedUsers)).
		Set("eventsInLastBatch", ldvalue.Int(eventsInLastBatch)).
		Set("streamInits", streamInits.Build()).
		Build()
	m.streamInits = nil
	m.dataSinceTime = timestamp
	return event
}

func normalizeOSName(osName string) string {
	switch osName {
	case "darwin":
		return "MacOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	}
	return osName
}
