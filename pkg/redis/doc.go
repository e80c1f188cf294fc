// Package redis provides connection setup for the Redis-compatible priority
// queue store, with startup retries and a healthcheck probe.
package redis
