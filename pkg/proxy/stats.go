package proxy

import "sync/atomic"

// Stats counts proxy activity. All counters are safe for concurrent use.
type Stats struct {
	activeSessions     atomic.Int64
	totalSessions      atomic.Uint64
	frontendMessages   atomic.Uint64
	backendMessages    atomic.Uint64
	transformedValues  atomic.Uint64
	protocolViolations atomic.Uint64
	upstreamFailures   atomic.Uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ActiveSessions     int64  `json:"active_sessions"`
	TotalSessions      uint64 `json:"total_sessions"`
	FrontendMessages   uint64 `json:"frontend_messages"`
	BackendMessages    uint64 `json:"backend_messages"`
	TransformedValues  uint64 `json:"transformed_values"`
	ProtocolViolations uint64 `json:"protocol_violations"`
	UpstreamFailures   uint64 `json:"upstream_failures"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ActiveSessions:     s.activeSessions.Load(),
		TotalSessions:      s.totalSessions.Load(),
		FrontendMessages:   s.frontendMessages.Load(),
		BackendMessages:    s.backendMessages.Load(),
		TransformedValues:  s.transformedValues.Load(),
		ProtocolViolations: s.protocolViolations.Load(),
		UpstreamFailures:   s.upstreamFailures.Load(),
	}
}
