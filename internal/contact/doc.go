// Package contact resolves a recipient id into the delivery address for a
// given channel. Opt-out and preference filtering happens upstream, before
// a notification row is ever created.
package contact
