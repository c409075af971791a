// Package config handles configuration loading for coven-chat.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Keys missing from the file keep the values from Default, so an
// empty file is a valid configuration.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_CHAT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/chat.yaml
//  3. ~/.config/coven/chat.yaml
//
// A path ending in .toml is decoded as TOML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  path: "${HOME}/chat.db"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	chat:
//	  poll_interval: "8s"
//	  session_ttl: "720h"
//
// # Configuration Sections
//
//	database:
//	  path: "~/.local/share/coven/chat.db"
//	  driver: "sqlite"        # sqlite (modernc, pure Go) | sqlite3 (mattn, cgo)
//	chat:
//	  history_limit: 50
//	  poll_interval: "8s"
//	  session_ttl: "720h"
//	auth:
//	  bcrypt_cost: 10
//	logging:
//	  level: "info"           # debug, info, warn, error
//	  format: "text"          # text, json
//
// The same keys in TOML:
//
//	[database]
//	path = "/var/lib/coven/chat.db"
//
//	[chat]
//	poll_interval = "5s"
package config
