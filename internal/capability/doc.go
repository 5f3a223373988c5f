// Package capability probes what the host can do for archiving and fetching.
//
// A Profile is built once at startup from operator switches and a few host checks
// (tar on PATH, operating system family). Strategies receive the Profile value and never
// look at the environment themselves, so tests can hand any combination to the engines.
package capability
