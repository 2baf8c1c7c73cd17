// Package config loads minicart configuration.
//
// # Resolution Order
//
//  1. Built-in defaults (see Default)
//  2. The TOML file at the given path, or ~/.config/minicart/config.toml
//  3. MINICART_* environment variables, including any from ./.env
//
// A missing config file is not an error. Blank values fall back to the
// previous layer, paths starting with "~" are expanded, and the result is
// checked by Validate before it is returned.
//
// # TOML Format
//
//	store_url = "https://shop.example.com"
//	request_timeout = "5s"
//	poll_interval = "30s"     # "0s" disables polling
//	coalesce_window = "400ms" # at least 100ms
//	cache_backend = "file"    # or "redis"
//	cache_dir = "~/.cache/minicart"
//	redis_url = "redis://localhost:6379/0"
//	redis_channel = "minicart:cart-changed"
//	signal_addr = "127.0.0.1:7488" # empty disables the HTTP signal endpoint
//	log_path = "~/.local/state/minicart/minicart.log"
//	log_level = "info"
//	log_format = "json"       # or "console"
//	theme = "Nightfox"
//	tracing_endpoint = ""     # OTLP/HTTP endpoint; empty disables tracing
//	tracing_sample_ratio = 1.0
//
// # Environment
//
// Every key can be overridden by upper-casing it and adding the MINICART_
// prefix, e.g. MINICART_STORE_URL or MINICART_COALESCE_WINDOW.
package config
