// Package steam controls the lifecycle of the local Steam client around
// an automation run: detecting whether it is running, shutting it down
// gracefully (then forcefully), waiting for full closure with backoff,
// discovering its executable, and relaunching it afterwards.
//
// Every operation degrades to a (bool, message) result rather than a
// fault. The only error a caller can receive is a configuration error at
// construction time. Per-process races during termination (a helper
// process exiting on its own, an access-denied service process) are
// absorbed; see the process package for the classification rules.
package steam
