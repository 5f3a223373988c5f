// Package main is the boxfs command line driver.
//
// boxfs runs one operation against a confined root directory and prints the structured
// result as JSON on stdout. Logs go to stderr.
//
// Configuration:
//   - Environment variables (12-factor, see internal/config)
//   - An optional file given with --config (yaml, toml or json)
//   - Global flags (override both)
//
// Usage:
//
//	boxfs --root ./data ls
//	boxfs --root ./data zip docs.zip docs notes.txt
//	boxfs --root ./data unzip --dest restored docs.zip
//	boxfs --root ./data fetch https://example.com/report.pdf downloads
//	echo hello | boxfs --root ./data put notes/hello.txt
//
// Exit codes:
//   - 0: success
//   - 1: failure
//   - 2: usage or configuration error
//   - 3: partial failure
//
// Signals:
//   - SIGINT, SIGTERM: cancel the running operation
package main
