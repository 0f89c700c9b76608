package mcp

// RunOrRaiseInput is the input for the run_or_raise tool.
type RunOrRaiseInput struct {
	App   string `json:"app,omitempty" jsonschema:"Application name, desktop file stem or window class (e.g. Firefox, kitty)"`
	Class string `json:"class,omitempty" jsonschema:"Window class to match instead of the one from the desktop entry"`
	Exec  string `json:"exec,omitempty" jsonschema:"Command to launch instead of the one from the desktop entry"`
}

// ActionOutput describes what the daemon did for a run-or-raise request.
type ActionOutput struct {
	Action  string `json:"action"`
	Class   string `json:"class"`
	Address string `json:"address,omitempty"`
	Exec    string `json:"exec,omitempty"`
}

// DirectionInput addresses a menu slot.
type DirectionInput struct {
	Direction string `json:"direction" jsonschema:"Slot direction: north, north-east, east, south-east, south, south-west, west, north-west (or n, ne, ... or 0-7)"`
}

// SelectSlotOutput is the output for the select_slot tool.
type SelectSlotOutput struct {
	Direction  string        `json:"direction"`
	Result     *ActionOutput `json:"result,omitempty"`
	Setup      bool          `json:"setup,omitempty"`
	ConfigPath string        `json:"config_path,omitempty"`
}

// CloseSlotOutput is the output for the close_slot tool.
type CloseSlotOutput struct {
	Direction string `json:"direction"`
	Address   string `json:"address"`
	Class     string `json:"class"`
	Title     string `json:"title,omitempty"`
}

// ShowMenuInput is the input for the show_menu tool.
type ShowMenuInput struct {
	X       *float64 `json:"x,omitempty" jsonschema:"Anchor x coordinate. When x and y are omitted the pointer position is used"`
	Y       *float64 `json:"y,omitempty" jsonschema:"Anchor y coordinate"`
	Monitor string   `json:"monitor,omitempty" jsonschema:"Monitor the coordinates are relative to"`
}

// MenuOutput reports the menu visibility after show_menu or hide_menu.
type MenuOutput struct {
	Visible bool    `json:"visible"`
	Changed bool    `json:"changed"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Monitor string  `json:"monitor,omitempty"`
}

type EmptyInput struct{}

// SlotOutput describes one configured slot.
type SlotOutput struct {
	Direction string `json:"direction"`
	App       string `json:"app"`
	Class     string `json:"class,omitempty"`
	Exec      string `json:"exec,omitempty"`
	Icon      string `json:"icon,omitempty"`
	Running   bool   `json:"running"`
	Setup     bool   `json:"setup,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ListSlotsOutput is the output for the list_slots tool.
type ListSlotsOutput struct {
	Slots []SlotOutput `json:"slots"`
}

// StatusOutput is the output for the daemon_status tool.
type StatusOutput struct {
	Running         bool   `json:"running"`
	Version         uint64 `json:"version,omitempty"`
	Visible         bool   `json:"visible"`
	UptimeSeconds   int64  `json:"uptime_seconds,omitempty"`
	ConfigPath      string `json:"config_path,omitempty"`
	Setup           bool   `json:"setup,omitempty"`
	Slots           int    `json:"slots"`
	Backend         string `json:"backend,omitempty"`
	LastConfigError string `json:"last_config_error,omitempty"`
}

// ReloadOutput is the output for the reload_config tool.
type ReloadOutput struct {
	Version uint64 `json:"version"`
	Slots   int    `json:"slots"`
	Setup   bool   `json:"setup,omitempty"`
}
