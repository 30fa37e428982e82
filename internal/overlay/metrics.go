package overlay

var (
	MetricSent            = []string{"groupchat", "overlay", "send", "count"}
	MetricDelivered       = []string{"groupchat", "overlay", "delivery", "ok", "count"}
	MetricDeliveryFailed  = []string{"groupchat", "overlay", "delivery", "failed", "count"}
	MetricReceived        = []string{"groupchat", "overlay", "receive", "count"}
	MetricDuplicates      = []string{"groupchat", "overlay", "receive", "duplicate", "count"}
	MetricLinksPruned     = []string{"groupchat", "overlay", "link", "pruned", "count"}
	MetricLinks           = []string{"groupchat", "overlay", "links"}
	MetricStreamLost      = []string{"groupchat", "overlay", "membership", "stream_lost", "count"}
	MetricHistoryCaughtUp = []string{"groupchat", "overlay", "history", "fetched", "count"}
)

func (o *Overlay) incr(key []string, n int) {
	if n <= 0 {
		return
	}
	o.opts.msink.IncrCounterWithLabels(key, float32(n), o.opts.labels)
}

func (o *Overlay) gauge(key []string, val int) {
	o.opts.msink.SetGaugeWithLabels(key, float32(val), o.opts.labels)
}
