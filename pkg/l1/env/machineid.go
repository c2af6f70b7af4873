// Package env provides the identity of the machine a board runs on.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID keys the protected board ID so the raw machine ID isn't exposed.
const AppID = "embd.go"

// MachineID retrieves the unique ID identifying the machine. It falls
// back to the hostname where no machine ID is available, e.g. in
// containers.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return BoardID(id)
	}
	glog.V(1).Infof("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "localhost"
}

// BoardID shortens a protected machine ID to a board ID.
func BoardID(protected string) string {
	if len(protected) > 12 {
		return protected[:12]
	}
	return protected
}
