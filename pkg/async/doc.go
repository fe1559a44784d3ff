// Package async provides small utilities for asynchronous error-returning
// operations built on a future pattern.
//
// ExecFuture represents an in-flight computation. It provides methods to
// wait for completion (Await), check status without blocking (IsComplete),
// and bound the wait (AwaitWithTimeout).
//
// Fan out a batch and join on all completions, collecting every failure:
//
//	futures := make([]*async.ExecFuture, 0, len(ids))
//	for _, id := range ids {
//		futures = append(futures, async.Exec(ctx, id, renewOne))
//	}
//	if err := async.ExecJoin(futures...); err != nil {
//		// err wraps the error of every failed renewal
//	}
//
// ExecJoin never abandons in-flight work: every future is awaited even when
// an earlier one failed, and the failures come back joined with errors.Join
// so callers can inspect them individually with errors.Is/As.
package async
