// Package campaign implements ad campaign lifecycle management.
//
// The service layer contains all business logic for creating, activating,
// pausing, and completing campaigns, plus administration of their platform
// connections. It depends on repository interfaces defined in this package
// and should never import from api/.
//
// Repository implementations live in repository/postgres/; in-memory
// doubles sit alongside the tests.
package campaign
