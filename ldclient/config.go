// Package ldclient provides the facade that wires the evaluator, data store, and event processor
// together into a single client usable by application code.
package ldclient

import (
	"github.com/launchdarkly/go-eval-engine/ldeval"
	"github.com/launchdarkly/go-eval-engine/ldevents"
	"github.com/launchdarkly/go-eval-engine/ldlog"
	"github.com/launchdarkly/go-eval-engine/ldstore"
)

// Config holds the assembled configuration for a Client, built up by applying a series of
// Options to a set of defaults.
type Config struct {
	Loggers        ldlog.Loggers
	DataProvider   ldeval.DataProvider
	EventProcessor ldevents.EventProcessor
	EventsDisabled bool
	Offline        bool
}

// Option configures a Config. Options are applied in the order passed to New.
type Option func(*Config)

// WithLoggers overrides the client's logging destination. The default is ldlog.NewDefaultLoggers().
func WithLoggers(loggers ldlog.Loggers) Option {
	return func(c *Config) {
		c.Loggers = loggers
	}
}

// WithDataProvider overrides the source of flag and segment data. The default is a freshly
// created, empty ldstore.Store.
func WithDataProvider(dataProvider ldeval.DataProvider) Option {
	return func(c *Config) {
		c.DataProvider = dataProvider
	}
}

// WithEventProcessor overrides how analytics events are dispatched. The default is
// ldevents.NewDefaultEventProcessor configured with the client's loggers and a capacity of 1000.
func WithEventProcessor(eventProcessor ldevents.EventProcessor) Option {
	return func(c *Config) {
		c.EventProcessor = eventProcessor
	}
}

// WithEventsDisabled, if set, replaces the event processor with a no-op implementation regardless
// of any EventProcessor the caller configured. This is primarily useful for tests.
func WithEventsDisabled() Option {
	return func(c *Config) {
		c.EventsDisabled = true
	}
}

// WithOffline puts the client into offline mode: no events are sent and flag data is never
// fetched, matching the teacher's own Config.Offline semantics.
func WithOffline() Option {
	return func(c *Config) {
		c.Offline = true
	}
}

func newConfig(options ...Option) Config {
	config := Config{
		Loggers:      ldlog.NewDefaultLoggers(),
		DataProvider: ldstore.New(),
	}
	for _, option := range options {
		option(&config)
	}
	return config
}
