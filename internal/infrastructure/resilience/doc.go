/*
Package resilience provides the circuit breakers that guard outbound fetches.

# Overview

A Breaker stops calls to one destination after a run of consecutive failures and lets
them through again after a cooldown. A Set keeps one breaker per key, which the fetcher
uses to isolate hosts from each other.

# Usage

	breakers := resilience.NewSet(resilience.Settings{
		Threshold: 5,
		Cooldown:  30 * time.Second,
	})

	err := breakers.For(u.Host).Do(func() error {
		return download(ctx, u)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// host is failing; try later
	}

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[probe ok]-> Closed
	                                                        |
	                                                 [probe failed]
	                                                        |
	                                                        v
	                                                      Open

Only one probe runs while half-open; concurrent calls get ErrTooManyRequests.
*/
package resilience
