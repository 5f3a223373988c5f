// Package types provides the data model shared by every boxfs component.
//
// Core Types:
//   - Entry: snapshot of one file or directory inside the confined root
//   - ArchiveRequest, FetchRequest: per-call request values
//   - Result, EntryResult: structured operation outcome with per-entry detail
//   - Kind, OpError: error taxonomy and the error type carrying it
//
// Every operation returns a non-nil *Result. When the outcome is a failure the
// operation also returns an *OpError, so callers can branch with errors.Is:
//
//	res, err := svc.Delete(ctx, "docs")
//	if errors.Is(err, types.ErrNotEmpty) {
//	    res, err = svc.DeleteRecursive(ctx, "docs")
//	}
package types
