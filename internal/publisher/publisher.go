// Package publisher defines the event publishing contract for crawl
// outcomes.
package publisher

import "context"

// Publisher emits crawl outcome events to downstream consumers. Publishing
// is best-effort: callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
