// Package dispatch sends insight notifications to customers over email,
// SMS, and WhatsApp and records every attempt in the delivery ledger.
//
// SMS and WhatsApp follow send-then-record: the carrier assigns a message
// sid synchronously, so the ledger row is created after a successful send.
// Email follows reserve-send-finalize: the tracking pixel URL embeds the
// ledger row id, so the row must exist before the message body can be
// rendered. A reserved row is discarded if the transport call fails.
package dispatch
