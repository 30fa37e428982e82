package overlay

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"groupchat/internal/chat"
)

// HandleEvent applies one membership event to the link set. Events that
// describe the state the overlay is already in are no-ops. Events are
// ignored outside a group.
func (o *Overlay) HandleEvent(ev chat.Event) {
	switch ev.Kind {
	case chat.EventUserJoined:
		o.connect(ev.Participant)
	case chat.EventUserLeft:
		o.disconnect(ev.Participant)
	case chat.EventSnapshot:
		o.reconcile(ev.Participants)
	}
}

func (o *Overlay) isSelf(p chat.Participant) bool {
	return p.UserID == o.cfg.UserID
}

// connect opens a link to p unless one to the same user already exists.
func (o *Overlay) connect(p chat.Participant) {
	if o.isSelf(p) {
		return
	}
	o.mu.Lock()
	if o.state != StateMember {
		o.mu.Unlock()
		return
	}
	if l, ok := o.links[p.ProcessID]; ok && l.peer == p {
		o.mu.Unlock()
		return
	}
	groupID := o.groupID
	clk := o.clock
	o.mu.Unlock()

	conn, err := o.dialer.Dial(p.Addr)
	if err != nil {
		o.opts.logger.Warn("failed to open peer link", "group", groupID, "peer", p.UserID, "addr", p.Addr, "error", err)
		return
	}

	// Make room for the newcomer's slot so our clock covers every member.
	clk.Merge(make([]int64, p.ProcessID+1))

	o.mu.Lock()
	if o.state != StateMember || o.groupID != groupID {
		o.mu.Unlock()
		_ = conn.Close()
		return
	}
	if l, ok := o.links[p.ProcessID]; ok {
		if l.peer == p {
			o.mu.Unlock()
			_ = conn.Close()
			return
		}
		// The identity was reused by someone else.
		defer o.closeLink(l)
	}
	o.links[p.ProcessID] = &link{peer: p, conn: conn}
	n := len(o.links)
	o.mu.Unlock()

	o.gauge(MetricLinks, n)
	o.opts.logger.Info("peer joined", "group", groupID, "peer", p.UserID, "process_id", p.ProcessID)
}

// disconnect drops the link to p if it is still the same user.
func (o *Overlay) disconnect(p chat.Participant) {
	o.mu.Lock()
	l, ok := o.links[p.ProcessID]
	if !ok || o.state != StateMember || (p.UserID != "" && l.peer.UserID != p.UserID) {
		o.mu.Unlock()
		return
	}
	delete(o.links, p.ProcessID)
	groupID := o.groupID
	n := len(o.links)
	o.mu.Unlock()

	o.closeLink(l)
	o.gauge(MetricLinks, n)
	o.opts.logger.Info("peer left", "group", groupID, "peer", l.peer.UserID, "process_id", p.ProcessID)
}

// reconcile makes the link set match a full participant list.
func (o *Overlay) reconcile(ps []chat.Participant) {
	want := make(map[int]chat.Participant, len(ps))
	selfListed := false
	for _, p := range ps {
		if o.isSelf(p) {
			selfListed = true
			continue
		}
		want[p.ProcessID] = p
	}

	o.mu.Lock()
	if o.state != StateMember {
		o.mu.Unlock()
		return
	}
	var stale []chat.Participant
	for id, l := range o.links {
		if p, ok := want[id]; !ok || p != l.peer {
			stale = append(stale, l.peer)
		}
	}
	groupID := o.groupID
	o.mu.Unlock()

	if !selfListed {
		o.opts.logger.Warn("discovery no longer lists us as a member", "group", groupID)
	}
	for _, p := range stale {
		o.disconnect(p)
	}
	for _, p := range want {
		o.connect(p)
	}
}

// watch follows the membership stream until ctx is cancelled. When the
// stream breaks the current links are kept and the subscription is retried
// with backoff.
func (o *Overlay) watch(ctx context.Context, done chan struct{}, groupID string, stream chat.EventStream) {
	defer close(done)
	log := o.opts.logger.With("group", groupID)
	b := o.opts.newBackOff()

	for {
		if stream != nil {
			n, err := o.consume(stream)
			if ctx.Err() != nil || o.isLeaving() {
				return
			}
			o.incr(MetricStreamLost, 1)
			log.Warn("membership stream lost, connectivity degraded; keeping current peers", "error", err)
			if n > 0 {
				b.Reset()
			} else if !sleep(ctx, b.NextBackOff()) {
				return
			}
		}

		stream = nil
		subscribe := func() error {
			s, err := o.disc.Subscribe(ctx, groupID, o.cfg.UserID)
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return err
			}
			stream = s
			return nil
		}
		notify := func(err error, wait time.Duration) {
			log.Debug("resubscribe failed", "error", err, "retry_in", wait)
		}
		if err := backoff.RetryNotify(subscribe, backoff.WithContext(b, ctx), notify); err != nil {
			if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
				log.Error("giving up on membership stream", "error", err)
			}
			return
		}
		log.Info("membership stream re-established")
	}
}

// consume applies events until the stream fails and reports how many it saw.
func (o *Overlay) consume(stream chat.EventStream) (int, error) {
	for n := 0; ; n++ {
		ev, err := stream.Recv()
		if err != nil {
			return n, err
		}
		o.HandleEvent(ev)
	}
}

// sleep waits for d or until ctx is done. It reports false if the wait was
// cut short or d is backoff.Stop.
func sleep(ctx context.Context, d time.Duration) bool {
	if d == backoff.Stop {
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
