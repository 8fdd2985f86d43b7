// Package domain defines the core business types for the IGNITE audience
// sync engine.
//
// Types in this package are pure value objects with no behavior beyond
// pure functions on the type itself. They are the shared language between
// jobs, stores, and connectors.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Constants and enums belong here
package domain
