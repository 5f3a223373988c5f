// Package providers groups the operation providers behind the boxfs service.
//
// Each provider works on a shared paths.Guard and receives the capability profile at
// construction:
//   - filesystem: single-entry operations, listings and search
//   - archive: archive creation and extraction with strategy fallback
//   - fetch: HTTP downloads committed atomically into the root
//
// Every mutating operation returns a non-nil *types.Result and, on failure, an
// *types.OpError carrying the error kind.
package providers
