// Package config defines daemon configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9480".
	Addr string `koanf:"addr"`

	// GameAddr is the websocket endpoint of the running game process.
	GameAddr string `koanf:"game_addr"`

	// DataPath is the SQLite file holding teams and the ability log.
	DataPath string `koanf:"data_path"`

	// RosterCapacity is the number of active (in-world) pet slots.
	RosterCapacity int `koanf:"roster_capacity"`

	// HutchCapacity bounds the external pet store.
	HutchCapacity int `koanf:"hutch_capacity"`

	// InventoryCapacity bounds the plain local inventory.
	InventoryCapacity int `koanf:"inventory_capacity"`

	// AbilityLogCapacity bounds the persisted activity log.
	AbilityLogCapacity int `koanf:"ability_log_capacity"`

	// CutoffSkewMS is the tolerance applied below the clear cutoff before
	// late events are dropped as stale.
	CutoffSkewMS int `koanf:"cutoff_skew_ms"`

	// PickerTimeoutMS bounds the wait for an external pet-picker selection.
	PickerTimeoutMS int `koanf:"picker_timeout_ms"`

	// EquipQueueSize bounds the pending equip-run queue.
	EquipQueueSize int `koanf:"equip_queue_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:           "info",
		Addr:               ":9480",
		GameAddr:           "ws://127.0.0.1:9777/ws",
		DataPath:           "menagerie.db",
		RosterCapacity:     3,
		HutchCapacity:      25,
		InventoryCapacity:  50,
		AbilityLogCapacity: 500,
		CutoffSkewMS:       1500,
		PickerTimeoutMS:    20_000,
		EquipQueueSize:     16,
	}
	return c
}
