// Package srm invokes the Steam ROM Manager executable to register local
// library entries with Steam.
//
// The runner validates the configured executable before every invocation
// and executes it with a single command argument ("add" in normal
// operation), the working directory set to the executable's own folder,
// combined output capture, and a hard timeout. Validation failures,
// timeouts, and spawn failures surface as *Error; a tool that runs to
// completion reports success purely by exit code zero.
package srm
