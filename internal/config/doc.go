// Package config handles configuration loading for omnichat.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	ai:
//	  api_key: "${OMNICHAT_AI_API_KEY}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	ai:
//	  timeout: "60s"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # API, websocket, and metrics
//
// Database:
//
//	database:
//	  path: "/var/lib/omnichat/chat.db"
//
// AI responder:
//
//	ai:
//	  endpoint: "https://api.openai.com/v1"
//	  api_key: "${OMNICHAT_AI_API_KEY}"
//	  model: "gpt-4o-mini"
//	  max_turns: 20
//	  timeout: "60s"
//
// Cross-origin access:
//
//	cors:
//	  allowed_origins:
//	    - "http://localhost:3000"
//
// Per-connection event rate limits (zero disables limiting):
//
//	limits:
//	  events_per_second: 20
//	  burst: 40
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
//	cfg, err := config.Load("/etc/omnichat/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
