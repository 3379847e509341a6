// Package engagement processes inbound delivery and engagement signals:
// carrier status callbacks for SMS/WhatsApp, tracking-pixel hits for
// email opens, and link-open hits for the per-source metric counters.
//
// Every entry point is tolerant of replays and unknown keys. The carrier
// retries callbacks and customers re-open messages, so all writes are
// idempotent where the signal is "has happened" (email seen, first open)
// and monotonic where it is a counter (open count).
package engagement
