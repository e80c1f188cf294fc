// Package config loads typed configuration structs from environment
// variables using caarlos0/env field tags, with optional .env file support
// for local development.
//
// Usage:
//
//	type QueueConfig struct {
//		WorkerCount int           `env:"QUEUE_WORKER_COUNT" envDefault:"4"`
//		PollEvery   time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`
//	}
//
//	var cfg QueueConfig
//	config.MustLoad(&cfg)
package config
