// Package process provides best-effort enumeration and signalling of
// operating-system processes by executable name.
//
// Enumeration is deliberately tolerant: processes routinely vanish, become
// zombies, or deny access between the moment they are listed and the moment
// they are inspected. Those conditions are classified (see Classify) and
// skipped rather than surfaced as errors, so a scan never fails because one
// entry in the process table was racing against it.
//
// # Key Types
//
//   - Proc: transient identity of a matched process (PID + name)
//   - Lister: enumeration capability
//   - Signaller: graceful/forceful termination and executable-path lookup
//   - SystemLister: gopsutil-backed implementation of both
//
// The interfaces exist so the steam package can be tested against fakes
// without touching the live process table.
package process
