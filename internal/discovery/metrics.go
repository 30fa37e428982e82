package discovery

import (
	"github.com/hashicorp/go-metrics"
)

var (
	MetricGroupsCreated  = []string{"groupchat", "discovery", "group", "created"}
	MetricJoins          = []string{"groupchat", "discovery", "join", "count"}
	MetricJoinsRejected  = []string{"groupchat", "discovery", "join", "rejected", "count"}
	MetricLeaves         = []string{"groupchat", "discovery", "leave", "count"}
	MetricEventsDropped  = []string{"groupchat", "discovery", "event", "dropped", "count"}
	MetricSubscribers    = []string{"groupchat", "discovery", "subscribers"}
	MetricMessagesLogged = []string{"groupchat", "discovery", "message", "logged", "count"}
	MetricImplicitLeaves = []string{"groupchat", "discovery", "leave", "implicit", "count"}
)

const (
	labelGroup  = "group"
	labelReason = "reason"
)

func (s *Service) labels(groupID string, extra ...metrics.Label) []metrics.Label {
	out := make([]metrics.Label, 0, len(s.cfg.labels)+1+len(extra))
	out = append(out, s.cfg.labels...)
	out = append(out, metrics.Label{Name: labelGroup, Value: groupID})
	return append(out, extra...)
}

func (s *Service) incr(key []string, groupID string, extra ...metrics.Label) {
	s.cfg.msink.IncrCounterWithLabels(key, 1, s.labels(groupID, extra...))
}

func (s *Service) gauge(key []string, groupID string, val int) {
	s.cfg.msink.SetGaugeWithLabels(key, float32(val), s.labels(groupID))
}
