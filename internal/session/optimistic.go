package session

import "context"

// Optimistic runs the optimistic update protocol shared by every mutating
// flow: apply the local patch to the session cache, attempt the durable
// write, and on failure roll the cache back before propagating the error.
// Rollback is typically a full resync of the affected slice of state rather
// than a surgical undo.
func Optimistic(ctx context.Context, apply func(), write func(context.Context) error, rollback func(context.Context)) error {
	apply()
	if err := write(ctx); err != nil {
		if rollback != nil {
			rollback(ctx)
		}
		return err
	}
	return nil
}
