// Package preflight provides readiness checks for the credentials, external
// services, and filesystem paths that repurpose depends on.
//
// These checks run in two contexts:
//   - "repurpose serve" calls RunAll at startup and refuses to start when a
//     required check fails.
//   - "repurpose status" prints every check, including optional provider
//     credentials that only gate individual stages.
package preflight
