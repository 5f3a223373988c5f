// Package filesystem performs single-entry operations inside a confined root.
//
// Every operation turns its path arguments into canonical paths through a paths.Guard
// before touching the disk and returns a types.Result describing what happened:
//   - directory: List, CreateDirectory
//   - basic: CreateEmptyFile, Delete, DeleteRecursive, Store, Open
//   - operations: Rename, SetPermissions
//   - search: Find (fastwalk traversal, doublestar patterns, MIME annotation)
//
// Delete and Rename act on links themselves; creation and chmod follow a link only when its
// target stays inside the root.
//
// Example Usage:
//
//	ops := filesystem.New(guard, profile, logger)
//	res, err := ops.CreateDirectory(ctx, "projects", "2024")
//	entries, err := ops.List(ctx, "projects")
package filesystem
