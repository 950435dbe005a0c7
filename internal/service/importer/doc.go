// Package importer orchestrates the normalization pipeline for one row
// source: parse, detect column types, discover schema diagnostics, map
// columns to canonical fields, transform and filter rows, merge, and
// persist the result as campaign performance records plus an import batch
// audit trail.
//
// The service layer depends on store interfaces defined in this package
// and should never import from api/. Store implementations live in
// repository/postgres/; in-memory doubles sit alongside the tests.
package importer
