package bus

import (
	"github.com/mudler/go-pluggable"
)

const (
	// EventBeforeProvision is issued before a target partition is formatted
	// and populated. A hook answering with an error aborts the run.
	EventBeforeProvision pluggable.EventType = "provision.before"

	// EventAfterProvision is issued once a new root has been provisioned,
	// patched and labeled.
	EventAfterProvision pluggable.EventType = "provision.after"

	// EventBeforeSwitch is issued before the boot configuration is switched
	// to another root. A hook answering with an error aborts the switch.
	EventBeforeSwitch pluggable.EventType = "switch.before"

	// EventAfterSwitch is issued after the boot configuration points at the
	// new root.
	EventAfterSwitch pluggable.EventType = "switch.after"

	// EventAfterBackup is issued after the shadow boot directory has been
	// refreshed from the live boot partition.
	EventAfterBackup pluggable.EventType = "backup.after"
)

// EventResponseSuccess and EventResponseError are the conventional State
// values hooks answer with. Anything else is logged verbatim.
const (
	EventResponseSuccess = "success"
	EventResponseError   = "error"
)

// ProvisionPayload is sent with provision.before and provision.after.
type ProvisionPayload struct {
	Target string `json:"target"`
	Source string `json:"source"`
	Label  string `json:"label,omitempty"`
}

// SwitchPayload is sent with switch.before and switch.after.
type SwitchPayload struct {
	Target  string `json:"target"`
	Current string `json:"current,omitempty"`
}

// BackupPayload is sent with backup.after.
type BackupPayload struct {
	BootMount string `json:"boot_mount"`
	ShadowDir string `json:"shadow_dir"`
}

// AllEvents is a convenience list of all the events streamed from the bus.
var AllEvents = []pluggable.EventType{
	EventBeforeProvision,
	EventAfterProvision,
	EventBeforeSwitch,
	EventAfterSwitch,
	EventAfterBackup,
}
