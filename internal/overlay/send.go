package overlay

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"groupchat/internal/chat"
	"groupchat/internal/history"
	"groupchat/internal/vclock"
)

// SendReport describes how a message fared.
type SendReport struct {
	Message chat.Message
	// Delivered lists the peers that acknowledged the message.
	Delivered []chat.Participant
	// Failed maps each peer that did not take the message to the delivery
	// error. Peers whose error wraps ErrPeerUnreachable have been dropped
	// from the link set; peers that rejected the message are kept.
	Failed map[int]error
}

// NoRecipients reports whether there was nobody to send to.
func (r *SendReport) NoRecipients() bool {
	return len(r.Delivered) == 0 && len(r.Failed) == 0
}

// Err joins the per-peer failures, or returns nil if every peer got the
// message.
func (r *SendReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]int, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, r.Failed[id])
	}
	return errors.Join(errs...)
}

// Send stamps text with the next local clock value and delivers it to every
// linked peer. Peers that cannot be reached are pruned and listed in the
// report; peers that answered with a rejection keep their link. Partial
// failure is not an error.
func (o *Overlay) Send(ctx context.Context, text string) (*SendReport, error) {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()

	o.mu.Lock()
	if o.state != StateMember {
		o.mu.Unlock()
		return nil, ErrNotInGroup
	}
	groupID, identity := o.groupID, o.identity
	clk, hist := o.clock, o.history
	targets := make([]*link, 0, len(o.links))
	for _, l := range o.links {
		targets = append(targets, l)
	}
	o.mu.Unlock()

	msg := chat.NewMessage(groupID, o.cfg.UserID, identity, text, clk.Increment())
	hist.Append(msg)
	o.incr(MetricSent, 1)

	res := deliverAll(ctx, targets, o.cfg.SendTimeout, func(ctx context.Context, l *link) error {
		return l.conn.SendDirectMessage(ctx, msg)
	})

	report := &SendReport{Message: msg, Failed: make(map[int]error, len(res.failed))}
	for _, l := range res.delivered {
		report.Delivered = append(report.Delivered, l.peer)
	}
	sort.Slice(report.Delivered, func(i, j int) bool { return report.Delivered[i].ProcessID < report.Delivered[j].ProcessID })
	for l, err := range res.failed {
		report.Failed[l.peer.ProcessID] = err
		if errors.Is(err, ErrPeerUnreachable) {
			o.prune(l, err)
		}
	}
	o.incr(MetricDelivered, len(res.delivered))
	o.incr(MetricDeliveryFailed, len(res.failed))

	if report.NoRecipients() {
		o.opts.logger.Debug("message sent with no recipients", "group", groupID, "clock", msg.Clock.String())
	}

	if o.cfg.LogToDiscovery {
		if err := o.disc.LogMessage(ctx, msg); err != nil {
			o.opts.logger.Warn("failed to log message to discovery", "group", groupID, "error", err)
		}
	}
	return report, nil
}

// prune drops l from the link set if it is still there. The peer is
// treated as gone until a membership event says otherwise.
func (o *Overlay) prune(l *link, cause error) {
	o.mu.Lock()
	cur, ok := o.links[l.peer.ProcessID]
	if ok && cur == l {
		delete(o.links, l.peer.ProcessID)
	}
	n := len(o.links)
	o.mu.Unlock()
	if !ok || cur != l {
		return
	}
	o.closeLink(l)
	o.incr(MetricLinksPruned, 1)
	o.gauge(MetricLinks, n)
	o.opts.logger.Warn("peer unreachable, link dropped", "peer", l.peer.UserID, "process_id", l.peer.ProcessID, "error", cause)
}

// ReceiveDirectMessage absorbs a message delivered by a peer. Receiving is a
// local event, so the clock is merged and then incremented. A message seen
// before is ignored. While a Join into msg's group is in flight the message
// is queued and absorbed once the join completes, since members learn of a
// newcomer before the newcomer learns its own identity.
func (o *Overlay) ReceiveDirectMessage(msg chat.Message) error {
	o.mu.Lock()
	if o.groupID != msg.GroupID || o.state == StateLobby {
		o.mu.Unlock()
		return fmt.Errorf("%w: message for group %q", ErrNotInGroup, msg.GroupID)
	}
	if o.state == StateJoining {
		o.queueLocked(msg)
		o.mu.Unlock()
		return nil
	}
	clk, hist := o.clock, o.history
	o.mu.Unlock()

	o.absorb(clk, hist, msg)
	return nil
}

func (o *Overlay) absorb(clk *vclock.Manager, hist *history.Log, msg chat.Message) {
	if !hist.Append(msg) {
		o.incr(MetricDuplicates, 1)
		return
	}
	clk.Update(msg.Clock)
	o.incr(MetricReceived, 1)
	o.opts.onMessage(msg.Clone())
}

// queueLocked holds msg until Join finishes. The queue is bounded by the
// history size; the oldest message goes first.
func (o *Overlay) queueLocked(msg chat.Message) {
	if len(o.pending) >= o.cfg.HistorySize {
		dropped := o.pending[0]
		o.pending = o.pending[1:]
		o.opts.logger.Warn("pending message dropped while joining", "group", dropped.GroupID, "id", dropped.ID)
	}
	o.pending = append(o.pending, msg.Clone())
}

// FetchHistoryFrom pulls the history held by the peer with the given
// identity. The messages are caught up on, not received: the clock is
// merged without an increment. It returns the number of new messages.
func (o *Overlay) FetchHistoryFrom(ctx context.Context, identity int) (int, error) {
	o.mu.Lock()
	if o.state != StateMember {
		o.mu.Unlock()
		return 0, ErrNotInGroup
	}
	l, ok := o.links[identity]
	clk, hist := o.clock, o.history
	o.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: process %d", ErrUnknownPeer, identity)
	}

	n := 0
	err := l.conn.FetchHistory(ctx, func(msg chat.Message) error {
		clk.MergeWithoutIncrement(msg.Clock)
		if hist.Append(msg) {
			n++
			o.opts.onMessage(msg.Clone())
		}
		return nil
	})
	o.incr(MetricHistoryCaughtUp, n)
	if err != nil {
		return n, fmt.Errorf("fetch history from %s: %w", l.peer.UserID, err)
	}
	o.opts.logger.Info("history caught up", "peer", l.peer.UserID, "messages", n)
	return n, nil
}
