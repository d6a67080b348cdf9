// Package notify announces survey submissions to team chat (Slack, Discord).
package notify

import (
	"fmt"
	"log"
)

// Notifier delivers a submission announcement to one destination.
type Notifier interface {
	SubmissionReceived(name, island, sector string, citizenID uint) error
}

// Multi fans one announcement out to several destinations. Individual
// failures are logged and do not stop the others.
type Multi struct {
	targets []Notifier
}

// NewMulti builds a fan-out notifier. Nil targets are skipped.
func NewMulti(targets ...Notifier) *Multi {
	m := &Multi{}
	for _, t := range targets {
		if t != nil {
			m.targets = append(m.targets, t)
		}
	}
	return m
}

// Len reports the number of configured destinations.
func (m *Multi) Len() int {
	return len(m.targets)
}

// SubmissionReceived delivers to every destination, returning the last error.
func (m *Multi) SubmissionReceived(name, island, sector string, citizenID uint) error {
	var last error
	for _, t := range m.targets {
		if err := t.SubmissionReceived(name, island, sector, citizenID); err != nil {
			log.Printf("notify: %v", err)
			last = err
		}
	}
	return last
}

// announcement formats the message posted to chat platforms.
func announcement(name, island, sector string, citizenID uint) string {
	return fmt.Sprintf("🎉 New survey response #%d: %s (%s, %s)", citizenID, name, island, sector)
}
