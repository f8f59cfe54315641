package sitereg

import (
	"os"
	"runtime"

	"github.com/google/uuid"
)

// Metadata describes the host a site is being registered from. It is
// collected at bootstrap time for future use; the current registration
// payload does not transmit it.
type Metadata struct {
	Hostname   string `json:"hostname"`
	OS         string `json:"os"`
	InstanceID string `json:"instance_id"`
}

// CollectMetadata gathers metadata about the local host. InstanceID is
// a fresh random UUID on every call.
func CollectMetadata() Metadata {
	hostname, _ := os.Hostname()
	return Metadata{
		Hostname:   hostname,
		OS:         runtime.GOOS,
		InstanceID: uuid.NewString(),
	}
}
