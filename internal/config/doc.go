// Package config provides 12-factor configuration management for boxfs.
//
// Configuration is loaded from environment variables with sensible defaults. An optional
// file (YAML, TOML or JSON) overlays the environment, and CLI flags override both.
//
// Configuration Sections:
//   - Root: the confined root directory
//   - Archive: native archive support and the tar binary
//   - Fetch: outbound HTTP switches, timeout, redirects, TLS, user agent, rate limit and
//     per-host circuit breaker
//   - Logging: Log level and output format
//   - Metrics: Prometheus namespace
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("serving %s\n", cfg.Root.Path)
//
// Environment Variables:
//   - BOXFS_ROOT, BOXFS_NATIVE_ARCHIVE, BOXFS_ALLOW_SHELL, BOXFS_TAR_BIN
//   - BOXFS_ALLOW_NETWORK, BOXFS_RICH_HTTP
//   - FETCH_TIMEOUT, FETCH_MAX_REDIRECTS, FETCH_INSECURE_TLS, FETCH_USER_AGENT, FETCH_RATE_LIMIT
//   - FETCH_BREAKER_THRESHOLD, FETCH_BREAKER_COOLDOWN
//   - LOG_LEVEL, LOG_DEV
//   - METRICS_NAMESPACE
package config
