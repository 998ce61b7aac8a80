package ldevents

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/launchdarkly/go-eval-engine/ldlog"
	"github.com/launchdarkly/go-eval-engine/ldtime"
)

const (
	eventSchemaHeader  = "X-LaunchDarkly-Event-Schema"
	payloadIDHeader    = "X-LaunchDarkly-Payload-ID"
	currentEventSchema = "3"
	defaultEventsURI   = "https://events.launchdarkly.com"
	analyticsURIPath   = "/bulk"
	diagnosticURIPath  = "/diagnostic"
)

const defaultRetryDelay = 1 * time.Second

type defaultEventSender struct {
	httpClient    *http.Client
	eventsURI     string
	diagnosticURI string
	headers       http.Header
	loggers       ldlog.Loggers
	retryDelay    time.Duration
}

// NewDefaultEventSender creates an EventSender that posts already-formatted event payloads to the
// given absolute URIs.
func NewDefaultEventSender(
	httpClient *http.Client,
	eventsURI string,
	diagnosticURI string,
	headers http.Header,
	loggers ldlog.Loggers,
) EventSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &defaultEventSender{
		httpClient:    httpClient,
		eventsURI:     eventsURI,
		diagnosticURI: diagnosticURI,
		headers:       headers,
		loggers:       loggers,
		retryDelay:    defaultRetryDelay,
	}
}

// NewServerSideEventSender creates an EventSender configured the way a server-side SDK normally
// is: it adds the Authorization header derived from sdkKey, and appends the standard /bulk and
// /diagnostic paths to the base events URI.
func NewServerSideEventSender(
	httpClient *http.Client,
	sdkKey string,
	eventsURI string,
	headers http.Header,
	loggers ldlog.Loggers,
) EventSender {
	if eventsURI == "" {
		eventsURI = defaultEventsURI
	}
	h := http.Header{}
	for k, vv := range headers {
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	h.Set("Authorization", sdkKey)
	return NewDefaultEventSender(
		httpClient,
		eventsURI+analyticsURIPath,
		eventsURI+diagnosticURIPath,
		h,
		loggers,
	)
}

func (s *defaultEventSender) SendEventData(kind EventDataKind, data []byte, eventCount int) EventSenderResult {
	uri := s.eventsURI
	if kind == DiagnosticEventDataKind {
		uri = s.diagnosticURI
	}
	if uri == "" {
		s.loggers.Warn("Events are being discarded because no destination URI is configured")
		return EventSenderResult{Success: false}
	}

	payloadUUID, _ := uuid.NewRandom()
	payloadID := payloadUUID.String()

	s.loggers.Debugf("Sending %d event(s) to %s", eventCount, uri)

	var resp *http.Response
	var respErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			delay := s.retryDelay
			if delay <= 0 {
				delay = defaultRetryDelay
			}
			s.loggers.Warnf("Will retry posting events after %s", delay)
			time.Sleep(delay)
		}
		req, reqErr := http.NewRequest("POST", uri, bytes.NewReader(data))
		if reqErr != nil {
			s.loggers.Errorf("Unexpected error while creating event request: %+v", reqErr)
			return EventSenderResult{Success: false}
		}
		for k, vv := range s.headers {
			for _, v := range vv {
				req.Header.Add(k, v)
			}
		}
		req.Header.Add("Content-Type", "application/json")
		if kind == AnalyticsEventDataKind {
			req.Header.Add(eventSchemaHeader, currentEventSchema)
			req.Header.Add(payloadIDHeader, payloadID)
		}

		resp, respErr = s.httpClient.Do(req)
		if resp != nil && resp.Body != nil {
			_, _ = ioutil.ReadAll(resp.Body)
			_ = resp.Body.Close()
		}

		if respErr != nil {
			s.loggers.Warnf("Unexpected error while sending events: %+v", respErr)
			continue
		}
		if resp.StatusCode >= 400 && isHTTPErrorRecoverable(resp.StatusCode) {
			s.loggers.Warnf("Received error status %d when sending events", resp.StatusCode)
			continue
		}
		break
	}

	if respErr != nil || resp == nil {
		return EventSenderResult{Success: false}
	}

	if err := checkForHttpError(resp.StatusCode, uri); err != nil {
		s.loggers.Error(httpErrorMessage(resp.StatusCode, "posting events", "some events were dropped"))
		return EventSenderResult{
			Success:      false,
			MustShutDown: !isHTTPErrorRecoverable(resp.StatusCode),
		}
	}

	result := EventSenderResult{Success: true}
	if dt, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		result.TimeFromServer = ldtime.UnixMillisFromTime(dt)
	}
	return result
}
