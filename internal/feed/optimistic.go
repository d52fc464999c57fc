package feed

import "context"

// Mutation is one optimistic state change: apply the intended end state to
// local store right away, call the server, and either commit the server's
// response or restore the pre-apply snapshot.
type Mutation[R any] struct {
	// Apply snapshots the state about to change, applies the intended end
	// state, and returns the closure that restores the snapshot.
	Apply func() (restore func())
	// Call performs the network request for the change.
	Call func(ctx context.Context) (R, error)
	// Commit merges the server response into the already-applied local
	// state. Optional; when nil the optimistic state stands as-is.
	Commit func(R)
}

// Run executes a mutation. On any call failure the snapshot is restored
// before the error is returned; the error's classification decides what
// the caller surfaces to the user.
func Run[R any](ctx context.Context, m Mutation[R]) error {
	restore := m.Apply()
	out, err := m.Call(ctx)
	if err != nil {
		restore()
		return err
	}
	if m.Commit != nil {
		m.Commit(out)
	}
	return nil
}
