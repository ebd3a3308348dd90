package api

import (
	"time"

	"capdraft/store"
)

type ServerConfig struct {
	DB       store.Config
	Redis    RedisConfig
	Finalize FinalizeConfig
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	Events string
}

// FinalizeConfig drives the worker that moves expired nominated items to
// SOLD. Interval zero disables the worker.
type FinalizeConfig struct {
	Interval time.Duration
}
