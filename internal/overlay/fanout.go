package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// deliverFunc performs one direct delivery.
type deliverFunc func(ctx context.Context, l *link) error

// deliveryResult is the outcome of a fan-out to a set of links.
type deliveryResult struct {
	delivered []*link
	failed    map[*link]error
}

// deliverAll calls fn for every link in parallel, each bounded by timeout,
// and waits for all of them. One peer failing never stops the others.
func deliverAll(ctx context.Context, links []*link, timeout time.Duration, fn deliverFunc) deliveryResult {
	res := deliveryResult{failed: make(map[*link]error)}
	if len(links) == 0 {
		return res
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, l := range links {
		wg.Add(1)
		go func(l *link) {
			defer wg.Done()

			peerCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			err := fn(peerCtx, l)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
			case errors.Is(err, ErrPeerRejected):
				// The peer answered, so the link stays.
				res.failed[l] = fmt.Errorf("%s (process %d): %w", l.peer.UserID, l.peer.ProcessID, err)
				return
			default:
				res.failed[l] = fmt.Errorf("%w: %s (process %d): %w", ErrPeerUnreachable, l.peer.UserID, l.peer.ProcessID, err)
				return
			}
			res.delivered = append(res.delivered, l)
		}(l)
	}
	wg.Wait()
	return res
}
