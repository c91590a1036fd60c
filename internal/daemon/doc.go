// Package daemon runs the long-lived repurpose API process.
//
// It owns the flock-based single-instance lock, the HTTP listener, and a
// clean shutdown path. Request handling lives in httpapi; the daemon only
// decides when the server starts and stops.
package daemon
