package config

import (
	"strings"
	"time"
)

// WorkerConfig controls the worker runtime.
type WorkerConfig struct {
	// PollSeconds is the reserve backstop interval; NOTIFY wakeups usually
	// cut the wait short.
	PollSeconds int `env:"WORKER_POLL_SECONDS" envDefault:"2"`

	// LocalConcurrency bounds in-flight jobs per queue in this process.
	LocalConcurrency int `env:"QUEUE_LOCAL_CONCURRENCY" envDefault:"4"`

	// BatchSize is how many jobs one reserve pulls.
	BatchSize int `env:"QUEUE_BATCH_SIZE" envDefault:"1"`

	// Per-job-type handler timeouts. Deal probes wait on on-chain activity
	// and get a higher floor than retrievals.
	DealTimeoutSeconds      int `env:"DEAL_JOB_TIMEOUT_SECONDS"      envDefault:"600"`
	RetrievalTimeoutSeconds int `env:"RETRIEVAL_JOB_TIMEOUT_SECONDS" envDefault:"120"`

	// LockRetrySeconds is how far out a job re-sends itself after losing the
	// per-provider mutex.
	LockRetrySeconds int `env:"LOCK_RETRY_SECONDS" envDefault:"60"`

	// MutexStaleSeconds is how old a mutex claim must be before another
	// worker may steal it.
	MutexStaleSeconds int `env:"MUTEX_STALE_SECONDS" envDefault:"1800"`

	// GatewayURL is the provider gateway the probe handlers call.
	GatewayURL string `env:"PROBE_GATEWAY_URL" envDefault:"http://localhost:9000"`
}

// Sanitize applies guardrails to worker settings.
func (c *WorkerConfig) Sanitize() {
	if c.PollSeconds < 1 {
		c.PollSeconds = 1
	}
	if c.LocalConcurrency < 1 {
		c.LocalConcurrency = 1
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.DealTimeoutSeconds < 60 {
		c.DealTimeoutSeconds = 60
	}
	if c.RetrievalTimeoutSeconds < 30 {
		c.RetrievalTimeoutSeconds = 30
	}
	if c.LockRetrySeconds < 1 {
		c.LockRetrySeconds = 60
	}
	if c.MutexStaleSeconds < 1 {
		c.MutexStaleSeconds = 1800
	}
	c.GatewayURL = strings.TrimRight(strings.TrimSpace(c.GatewayURL), "/")
}

// PollInterval returns the reserve backstop as a duration.
func (c *WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// DealTimeout returns the deal handler timeout.
func (c *WorkerConfig) DealTimeout() time.Duration {
	return time.Duration(c.DealTimeoutSeconds) * time.Second
}

// RetrievalTimeout returns the retrieval handler timeout.
func (c *WorkerConfig) RetrievalTimeout() time.Duration {
	return time.Duration(c.RetrievalTimeoutSeconds) * time.Second
}

// LockRetry returns the mutex retry delay.
func (c *WorkerConfig) LockRetry() time.Duration {
	return time.Duration(c.LockRetrySeconds) * time.Second
}

// MutexStale returns the mutex staleness threshold.
func (c *WorkerConfig) MutexStale() time.Duration {
	return time.Duration(c.MutexStaleSeconds) * time.Second
}
