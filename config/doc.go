// Package config loads service configuration and exposes it to the wiring
// engine.
//
// Configuration comes from a config.yml file and .env files found in
// standard locations, merged by viper. Environment variables override file
// values; WIRING_HOOK_TIMEOUT binds to wiring.hook_timeout.
//
//	var cfg MyConfig
//	err := config.LoadConfig("orders", &cfg)
//
// A Source adapts the same merged view for configuration-valued injection
// points:
//
//	src, _ := config.LoadSource("orders")
//	wc := di.NewWiringContext(di.WithConfigSource(src))
package config
