// Package notification holds the domain model for the delivery engine: the
// Notification record, its channel/priority/status enums with the legal
// status transitions, and the append-only delivery log entry.
//
// The Notification row in the record store is authoritative; queue items are
// pointers plus a due time. A notification is mutated only by the worker
// that dequeued it.
package notification
