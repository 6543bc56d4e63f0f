package models

import (
	"time"

	"gorm.io/datatypes"
)

// FiberPortCount is the number of trailing switch ports reserved for fiber
// uplinks. Port numbers above Ports-FiberPortCount only accept fiber panels.
const FiberPortCount = 4

// Switch belongs to at most one Rack and owns exactly Ports Port rows (1..Ports).
type Switch struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"uniqueIndex;not null" json:"name"`
	Brand          string    `json:"brand"`
	Model          string    `json:"model"`
	IPAddress      string    `gorm:"index" json:"ip_address"`
	RackID         *uint     `gorm:"index" json:"rack_id,omitempty"`
	PositionInRack *int      `json:"position_in_rack,omitempty"`
	Ports          int       `gorm:"not null" json:"ports"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsFiberPort reports whether portNo is one of the reserved fiber ports.
func (s Switch) IsFiberPort(portNo int) bool {
	return portNo > s.Ports-FiberPortCount
}

// PortType tags what is plugged into a switch port.
type PortType string

const (
	PortTypeEmpty  PortType = "EMPTY"
	PortTypeDevice PortType = "DEVICE"
	PortTypeHub    PortType = "HUB"
	PortTypeAP     PortType = "AP"
	PortTypeServer PortType = "SERVER"
	PortTypePhone  PortType = "PHONE"
	PortTypeFiber  PortType = "FIBER"
)

// HubDevice is one device behind a hub/unmanaged switch on a port.
type HubDevice struct {
	Device string `json:"device"`
	IP     string `json:"ip,omitempty"`
	MAC    string `json:"mac,omitempty"`
}

// HubDevices is stored as a JSON column (JSONB on postgres).
type HubDevices = datatypes.JSONSlice[HubDevice]

// Port is a switch-side port. (switch_id, port_no) is unique.
type Port struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SwitchID    uint       `gorm:"not null;uniqueIndex:idx_switch_port,priority:1" json:"switch_id"`
	PortNo      int        `gorm:"not null;uniqueIndex:idx_switch_port,priority:2" json:"port_no"`
	Type        PortType   `gorm:"size:16;default:'EMPTY'" json:"type"`
	Device      string     `json:"device"`
	IP          string     `json:"ip"`
	MAC         string     `json:"mac"`
	Description string     `json:"description"`
	IsHub       bool       `json:"is_hub"`
	HubDevices  HubDevices `json:"hub_devices,omitempty"`
	Status      LinkStatus `gorm:"size:16;default:'inactive'" json:"status"`
	SyncVersion int64      `gorm:"not null;default:0" json:"sync_version"`
	Counterpart
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
