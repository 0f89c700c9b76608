// Package metrics records daemon activity. The Prometheus implementation is
// used when a metrics address is configured; NoopRecorder otherwise.
package metrics

import "time"

// ReloadResult labels configuration reload attempts.
type ReloadResult string

const (
	ReloadApplied ReloadResult = "applied"
	ReloadSetup   ReloadResult = "setup"
	ReloadFailed  ReloadResult = "failed"
)

// Recorder defines observability hooks for the daemon. All methods must be
// safe to call concurrently.
type Recorder interface {
	ObserveRequest(command, status string, d time.Duration)
	IncDecision(action string)
	IncConfigReload(result ReloadResult)
	SetConfigVersion(version uint64)
	ObserveCompositorCall(backend, op string, d time.Duration, err error)
	SetMenuVisible(visible bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRequest(string, string, time.Duration)               {}
func (NoopRecorder) IncDecision(string)                                         {}
func (NoopRecorder) IncConfigReload(ReloadResult)                               {}
func (NoopRecorder) SetConfigVersion(uint64)                                    {}
func (NoopRecorder) ObserveCompositorCall(string, string, time.Duration, error) {}
func (NoopRecorder) SetMenuVisible(bool)                                        {}
