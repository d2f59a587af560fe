package events

import (
	"context"
	"errors"
)

// MultiPublisher fans every event out to several publishers. Publish
// errors are joined rather than short-circuiting so one slow sink cannot
// silence the others.
type MultiPublisher struct {
	sinks []Publisher
}

// NewMultiPublisher wraps the given publishers. Nil entries are skipped.
func NewMultiPublisher(sinks ...Publisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiPublisher) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
