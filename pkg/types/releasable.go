package types

// Releasable is a handle which must be released exactly once.
// Release reports whether this call tore the shared resource down.
type Releasable interface {
	Release() bool
}

// Counted exposes the reference counts of a shared object.
type Counted interface {
	StrongCount() uint64
	WeakCount() uint64
}

// RefCounted is a Releasable handle to a Counted object.
type RefCounted interface {
	Releasable
	Counted
}

// ReleaseAll releases handles in reverse order and returns how many of them
// tore their resource down. Nil entries are skipped.
func ReleaseAll(rs ...Releasable) (freed int) {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] != nil && rs[i].Release() {
			freed++
		}
	}
	return freed
}
