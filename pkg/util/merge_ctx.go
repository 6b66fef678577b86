package util

import "context"

// MergeContexts returns a context that ends when either input ends.
// Used to bound AI jobs by both the request lifetime and a hard timeout
func MergeContexts(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(context.Background())

	go func() {
		select {
		case <-ctx1.Done():
			cancel()
		case <-ctx2.Done():
			cancel()
		case <-merged.Done():
		}
	}()

	return merged, cancel
}
