// Package revenue resolves the authoritative conversion value and total
// revenue for one campaign+platform from competing sources.
//
// Sources are consulted in strict priority order: real-time webhook events,
// an explicitly configured conversion value, imported revenue-to-date, then
// a derived per-conversion value. The winning source is never mixed with
// lower-priority figures. The resolver also self-heals stale state: a
// connection-level conversion value with no surviving revenue source behind
// it is cleared before resolution proceeds.
//
// The resolver depends on store interfaces defined in this package.
// Implementations live in repository/postgres/; in-memory doubles sit
// alongside the tests.
package revenue
