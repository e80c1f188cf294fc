// Package repository implements the PostgreSQL record store: the
// authoritative notification rows, their append-only delivery log, and the
// in-app inbox. Status changes and their log entries commit in a single
// transaction per notification.
package repository
