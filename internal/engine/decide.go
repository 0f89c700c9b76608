package engine

import (
	"fmt"

	"github.com/troia/halo/internal/platform"
)

type ActionKind int

const (
	ActionFocus ActionKind = iota + 1
	ActionLaunch
)

func (k ActionKind) String() string {
	switch k {
	case ActionFocus:
		return "focus"
	case ActionLaunch:
		return "launch"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ActionKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "focus":
		*k = ActionFocus
	case "launch":
		*k = ActionLaunch
	default:
		return fmt.Errorf("unknown action %q", text)
	}
	return nil
}

// Action is what run-or-raise decided to do.
type Action struct {
	Kind    ActionKind       `json:"kind"`
	Address platform.Address `json:"address,omitempty"`
	Exec    string           `json:"exec,omitempty"`
}

// Outcome reports an executed action and the target it was decided for.
type Outcome struct {
	Action Action `json:"action"`
	Target Target `json:"target"`
}

// Decide focuses the first window of target's class in listing order, or
// launches target's command when there is none.
func Decide(target Target, windows []platform.Window) Action {
	if w, ok := FindWindow(target.Class, windows); ok {
		return Action{Kind: ActionFocus, Address: w.Address}
	}
	return Action{Kind: ActionLaunch, Exec: target.Exec}
}
