// Package config loads stockroom's client configuration.
//
// # Configuration Discovery
//
// Load resolves the file in this order:
//
//  1. An explicit path, when given
//  2. ~/.config/stockroom/config.toml otherwise
//  3. Built-in defaults when the file does not exist
//
// Keys that are missing, empty or zero keep their default.
//
// # Default Values
//
//   - base_url: http://localhost:3000/products
//   - poll_interval: 5 (seconds)
//   - request_timeout: 5 (seconds)
//   - log_file: ~/.local/share/stockroom/stockroom.log
//   - log_level: info
//   - breaker.consecutive_failures: 5 (negative disables the breaker)
//   - breaker.open_timeout: 10 (seconds)
//
// # TOML Format
//
//	base_url = "http://localhost:3000/products"
//	poll_interval = 5
//	request_timeout = 5
//	log_file = "~/.local/share/stockroom/stockroom.log"
//	log_level = "info"
//
//	[breaker]
//	consecutive_failures = 5
//	open_timeout = 10
//
// Tilde expansion is applied to the config path and log_file.
package config
