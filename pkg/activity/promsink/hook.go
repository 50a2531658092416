// Package promsink counts activity events with Prometheus collectors.
package promsink

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-jsonasset/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultNamespace = "jsonasset"
	defaultSubsystem = "activity"
)

// Option configures the collectors created by New.
type Option func(*config)

type config struct {
	namespace   string
	subsystem   string
	constLabels prometheus.Labels
}

// WithNamespace overrides the metric namespace.
func WithNamespace(namespace string) Option {
	return func(c *config) {
		c.namespace = strings.TrimSpace(namespace)
	}
}

// WithSubsystem overrides the metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *config) {
		c.subsystem = strings.TrimSpace(subsystem)
	}
}

// WithConstLabels attaches constant labels to every collector.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *config) {
		c.constLabels = labels
	}
}

// Hook counts asset events by verb and channel.
type Hook struct {
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// New builds a Hook and registers its collectors with reg. A nil reg skips
// registration, which is useful when the caller manages collectors itself.
func New(reg prometheus.Registerer, opts ...Option) (*Hook, error) {
	cfg := config{namespace: defaultNamespace, subsystem: defaultSubsystem}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	hook := &Hook{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Subsystem:   cfg.subsystem,
			Name:        "events_total",
			Help:        "Asset activity events by verb and channel.",
			ConstLabels: cfg.constLabels,
		}, []string{"verb", "channel"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.namespace,
			Subsystem:   cfg.subsystem,
			Name:        "decode_failures_total",
			Help:        "Asset text that could not be applied, by channel.",
			ConstLabels: cfg.constLabels,
		}, []string{"channel"}),
	}
	if reg == nil {
		return hook, nil
	}
	var err error
	if hook.events, err = register(reg, hook.events); err != nil {
		return nil, err
	}
	if hook.failures, err = register(reg, hook.failures); err != nil {
		return nil, err
	}
	return hook, nil
}

// register returns the collector already registered under the same
// descriptor, so several hooks can share one registry.
func register(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(vec)
	if err == nil {
		return vec, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, err
}

// Collectors exposes the counters for custom registration.
func (h *Hook) Collectors() []prometheus.Collector {
	if h == nil {
		return nil
	}
	return []prometheus.Collector{h.events, h.failures}
}

// Notify increments the counters for event.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" {
		return nil
	}
	h.events.WithLabelValues(normalized.Verb, normalized.Channel).Inc()
	if normalized.Verb == activity.VerbAssetDecodeFailed {
		h.failures.WithLabelValues(normalized.Channel).Inc()
	}
	return nil
}
