// Package daemonctl starts, stops, and probes a detached `repurpose serve`
// process using its pid file and the API liveness endpoint.
package daemonctl
