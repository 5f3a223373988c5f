package types

// Outcome is the aggregate result of an operation.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomePartialFailure Outcome = "partial_failure"
	OutcomeFailure        Outcome = "failure"
)

// EntryResult records what happened to one entry of an operation.
type EntryResult struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Failed reports whether the entry was not processed because of an error.
func (e EntryResult) Failed() bool {
	return e.Kind != KindNone
}

// Result is the structured outcome returned by every operation.
type Result struct {
	Op       string        `json:"op"`
	Outcome  Outcome       `json:"outcome"`
	Kind     Kind          `json:"kind,omitempty"`
	Strategy string        `json:"strategy,omitempty"`
	Output   string        `json:"output,omitempty"`
	Note     string        `json:"note,omitempty"`
	Error    string        `json:"error,omitempty"`
	Bytes    int64         `json:"bytes,omitempty"`
	Checksum string        `json:"checksum,omitempty"`
	Affected []EntryResult `json:"affected,omitempty"`
}

// Success creates a successful result for op.
func Success(op string, affected ...EntryResult) *Result {
	return &Result{Op: op, Outcome: OutcomeSuccess, Affected: affected}
}

// Failure creates a failed result from err and returns it together with err as an *OpError.
func Failure(op, path string, err error) (*Result, error) {
	opErr := Wrap(op, path, err)
	return &Result{
		Op:      op,
		Outcome: OutcomeFailure,
		Kind:    opErr.Kind,
		Error:   opErr.Error(),
		Affected: []EntryResult{{
			Name:  path,
			Path:  path,
			Kind:  opErr.Kind,
			Error: opErr.Error(),
		}},
	}, opErr
}

// Add appends an entry result.
func (r *Result) Add(e EntryResult) {
	r.Affected = append(r.Affected, e)
}

// Succeeded appends a processed entry.
func (r *Result) Succeeded(name, path string) {
	r.Add(EntryResult{Name: name, Path: path})
}

// Skip appends an entry that was deliberately not processed.
func (r *Result) Skip(name, path, reason string) {
	r.Add(EntryResult{Name: name, Path: path, Skipped: true, Error: reason})
}

// Fail appends a failed entry.
func (r *Result) Fail(name, path string, err error) {
	r.Add(EntryResult{Name: name, Path: path, Kind: KindOf(err), Error: err.Error()})
}

// Abort marks the whole operation failed with err, keeping the entries recorded so far.
func (r *Result) Abort(path string, err error) error {
	opErr := Wrap(r.Op, path, err)
	r.Outcome = OutcomeFailure
	r.Kind = opErr.Kind
	r.Error = opErr.Error()
	return opErr
}

// Failures returns the failed entries in order.
func (r *Result) Failures() []EntryResult {
	var out []EntryResult
	for _, e := range r.Affected {
		if e.Failed() {
			out = append(out, e)
		}
	}
	return out
}

// Settle derives the aggregate outcome from total units of work and the number that failed,
// and returns the matching error (nil unless every unit failed).
func (r *Result) Settle(total, failed int) error {
	switch {
	case failed == 0:
		r.Outcome = OutcomeSuccess
		r.Kind = KindNone
		return nil
	case failed < total:
		r.Outcome = OutcomePartialFailure
		r.Kind = KindPartialFailure
		return nil
	default:
		r.Outcome = OutcomeFailure
		r.Kind = KindPartialFailure
		if fails := r.Failures(); len(fails) > 0 && allSameKind(fails) {
			r.Kind = fails[0].Kind
		}
		err := Errorf(r.Op, r.Output, r.Kind, "all %d entries failed", total)
		r.Error = err.Error()
		return err
	}
}

func allSameKind(entries []EntryResult) bool {
	for _, e := range entries[1:] {
		if e.Kind != entries[0].Kind {
			return false
		}
	}
	return true
}
