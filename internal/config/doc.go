// Package config loads the arena client configuration.
//
// Configuration lives in a single directory, ~/.config/arena by default,
// overridable with the --config-path flag. The directory holds config.yaml;
// every field is optional and falls back to the defaults below.
//
//	api:
//	  base_url: https://api.arenahub.gg/api
//	  timeout: 30s
//	retry:
//	  max_attempts: 3
//	  delay: 1s
//	  backoff_factor: 2
//	rate_limit:
//	  requests_per_second: 10
//	  burst: 20
//	session:
//	  inactivity_timeout: 24h
//	  revalidate_interval: 5m
//	  activity_check_interval: 1m
//	oauth:
//	  callback_port: 8765
//	  cooldown: 2s
//	storage:
//	  dir: ~/.config/arena/state
//	log_level: info
//
// The ARENA_API_URL environment variable overrides api.base_url.
package config
