// Package httpapi exposes the generation pipeline over HTTP using chi.
//
// POST /v1/jobs runs a job and streams its events as newline-delimited JSON
// for the lifetime of the job. The remaining /v1 routes read stored job
// records, serve stage artifacts, and tail daemon logs. When a token is
// configured every /v1 route requires bearer authentication; /healthz is
// always public.
package httpapi
