// Package httputil provides the JSON response envelope shared by every
// API handler. Handlers go through these helpers rather than writing to
// the http.ResponseWriter directly, which keeps error shapes uniform
// across the campaign, import, and revenue surfaces.
package httputil
