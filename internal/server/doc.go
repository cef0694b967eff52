// Package server exposes a Session over HTTP.
//
// Routes:
//
//	GET  /api/state     current session view
//	POST /api/register  submit {name, email}; 202 with the started run
//	PUT  /api/form      replace the pending input
//	POST /api/cancel    cancel the run in flight
//	POST /api/reset     cancel and clear both record collections
//	GET  /api/events    WebSocket feed: one snapshot, then every event
//	GET  /healthz       liveness
package server
