// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// Each configuration type is parsed once per process and cached, so
// components can load their own config independently without worrying
// about parse order or duplication:
//
//	var paddle payment.PaddleConfig
//	config.MustLoad(&paddle)
//
//	var db pg.Config
//	if err := config.Load(&db); err != nil {
//		return err
//	}
//
// Struct fields use caarlos0/env tags:
//
//	type WorkerConfig struct {
//		Concurrency int           `env:"WORKER_CONCURRENCY" envDefault:"10"`
//		PullInterval time.Duration `env:"WORKER_PULL_INTERVAL" envDefault:"1s"`
//	}
package config
