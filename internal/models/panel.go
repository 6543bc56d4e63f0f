package models

import "time"

// PatchPanel is a copper panel with TotalPorts PatchPort rows.
type PatchPanel struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RackID         uint      `gorm:"not null;index" json:"rack_id"`
	PanelLetter    string    `gorm:"size:8;not null" json:"panel_letter"`
	PositionInRack int       `gorm:"not null" json:"position_in_rack"`
	TotalPorts     int       `gorm:"not null" json:"total_ports"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PatchPort links to a non-fiber switch port only.
type PatchPort struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PanelID     uint       `gorm:"not null;uniqueIndex:idx_patch_panel_port,priority:1" json:"panel_id"`
	PortNumber  int        `gorm:"not null;uniqueIndex:idx_patch_panel_port,priority:2" json:"port_number"`
	Status      LinkStatus `gorm:"size:16;default:'inactive'" json:"status"`
	SyncVersion int64      `gorm:"not null;default:0" json:"sync_version"`
	Counterpart
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FiberPanel is a fiber panel with TotalFibers FiberPort rows.
type FiberPanel struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RackID         uint      `gorm:"not null;index" json:"rack_id"`
	PanelLetter    string    `gorm:"size:8;not null" json:"panel_letter"`
	PositionInRack int       `gorm:"not null" json:"position_in_rack"`
	TotalFibers    int       `gorm:"not null" json:"total_fibers"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FiberPort links either to a fiber switch port or, as a jump link, to a
// port on another fiber panel.
type FiberPort struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PanelID     uint       `gorm:"not null;uniqueIndex:idx_fiber_panel_port,priority:1" json:"panel_id"`
	PortNumber  int        `gorm:"not null;uniqueIndex:idx_fiber_panel_port,priority:2" json:"port_number"`
	Status      LinkStatus `gorm:"size:16;default:'inactive'" json:"status"`
	SyncVersion int64      `gorm:"not null;default:0" json:"sync_version"`
	Counterpart
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
