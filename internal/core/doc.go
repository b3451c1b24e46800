// Package core provides the business logic for the input sheet service.
//
// The package holds the domain types and every rule that does not depend on
// a transport or a storage engine. Web handlers, tests, and the server
// command all go through [Service].
//
// # Architecture
//
//   - Schema: the single current sheet definition (small items, groups, the
//     large item, and the dynamic input fields). Replaced as a whole, either
//     by a spreadsheet import or a manual edit.
//   - Records: append-only submissions. Several records may exist for one
//     small item; reports use the most recently appended one.
//   - Users: administrator accounts with bcrypt password hashes.
//
// Storage, spreadsheet parsing, and PDF rendering live in other packages and
// are handed to [NewService] through the interfaces in [Deps].
//
// # Saving Input
//
// [Service.SaveInput] checks the submission in two steps:
//
//  1. Every input id must have the form "d_<field id>"
//  2. Required fields are walked in schema order; the first blank one fails
//     with a [ValidationError] that names the field's label
//
// # Reports
//
// [Service.GenerateItemReport] and [Service.GenerateAllReport] load the
// schema and records concurrently, render a PDF, and write it to the output
// directory before returning an [Artifact]. Imports and renders share a
// [SlotLimiter]; a caller that can not get a slot in time gets
// [ErrTooManyJobs].
//
// # Error Handling
//
// Errors are mapped to user-facing messages and support codes by [MapError].
package core
