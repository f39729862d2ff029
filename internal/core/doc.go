// Package core is the application layer of gridkit: it resolves entity
// names to schemas and runs every operation the HTTP API and the CLI expose.
//
// # Entities
//
// Each entity is one schema file in the schema directory. [LoadRegistry]
// reads them all; the file name (or the schema's name key) is the entity
// name.
//
// # Service
//
// [Service] is the single entry point:
//
//   - Columns, InputFields and Visibility project the schema.
//   - Options and FieldOptions resolve choice lists, remote ones included.
//   - Import parses a CSV or XLSX file, guarded by an [ImportLimiter], and
//     stores accepted rows as one batch. Preview does the same without storing.
//   - Template writes the bulk-upload template.
//   - Query searches and sorts stored records; Imports and Rollback manage
//     stored batches.
//   - Can, Check and Allowed answer permission questions.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError].
// Each category has a code for support reference:
//
//   - SCH001, HDR001: schema and header problems
//   - VAL001-VAL007: row validation
//   - FILE001-FILE005: unreadable, oversized or empty files
//   - IMP001-IMP004: cancelled, busy, unknown or timed-out imports
//   - ENT001, PERM001, OPT001: unknown entity, permission, option source
package core
