package notify

import "sync"

type PermissionState string

const (
	PermissionDefault PermissionState = "default"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// Gate holds the runtime notification permission. It starts undetermined
// and is flipped by the permission endpoint; alerts are suppressed, not
// failed, while permission is absent.
type Gate struct {
	mu    sync.RWMutex
	state PermissionState
}

func NewGate() *Gate {
	return &Gate{state: PermissionDefault}
}

func (g *Gate) Set(state PermissionState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
}

func (g *Gate) State() PermissionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

func (g *Gate) Granted() bool {
	return g.State() == PermissionGranted
}
