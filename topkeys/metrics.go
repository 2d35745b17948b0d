package topkeys

import "github.com/IvanBrykalov/hotkeys/policy"

// NoopMetrics is the default Metrics implementation; it does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                     {}
func (NoopMetrics) Miss()                    {}
func (NoopMetrics) Admit()                   {}
func (NoopMetrics) Evict(policy.EvictReason) {}
func (NoopMetrics) Reject()                  {}

var _ Metrics = NoopMetrics{}
