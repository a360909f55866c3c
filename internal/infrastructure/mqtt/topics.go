package mqtt

import (
	"fmt"
	"strings"
)

// SystemStatusTopic carries the controller's own online/offline status,
// including the LWT published by the broker on unexpected disconnect.
const SystemStatusTopic = "spotrelay/system/status"

// Topics builds the relay's command and status topics from its base topic.
//
// OpenBeken-style relays expose one topic pair per channel:
//
//	<base>/<channel>/set  — command input, payload "1" or "0"
//	<base>/<channel>/get  — status output, the device echoes its actual state
//
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{Base: cfg.Relay.BaseTopic}
//	cmd := topics.RelayCommand(1)   // "<base>/1/set"
//	status := topics.RelayStatus(1) // "<base>/1/get"
type Topics struct {
	// Base is the device's topic prefix; a trailing slash is tolerated.
	Base string
}

// RelayCommand returns the command topic for the given relay channel.
func (t Topics) RelayCommand(channel int) string {
	return fmt.Sprintf("%s/%d/set", strings.TrimSuffix(t.Base, "/"), channel)
}

// RelayStatus returns the status topic for the given relay channel.
func (t Topics) RelayStatus(channel int) string {
	return fmt.Sprintf("%s/%d/get", strings.TrimSuffix(t.Base, "/"), channel)
}
