// Package registration is the client for the user service's registration
// endpoint.
//
// Register makes exactly one attempt and never fails outward. When the
// backend is unreachable, answers with a non-2xx status, or returns a body
// that cannot be decoded, the client synthesizes an equivalent record in
// the "local-" id namespace and reports it as a Fallback outcome. Callers
// can tell which path was taken from Outcome.Source without reading logs.
package registration
