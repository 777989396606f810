package config

import "time"

const (
	defaultMinWorkers    = 4
	defaultMaxWorkers    = 8
	defaultQueueCapacity = 16
	defaultNamePrefix    = "fanout"

	defaultLogLevel      = "info"
	defaultLogMaxSize    = 50
	defaultLogMaxBackups = 30
	defaultLogMaxAge     = 7

	defaultQueryCount      = 20
	defaultQueryBatches    = 2
	defaultQueryMinLatency = 50 * time.Millisecond
	defaultQueryMaxLatency = 500 * time.Millisecond
)
