// Package models defines GORM data models for patchbay.
package models

import "time"

// Rack is a physical cabinet with a fixed number of mounting slots.
// Switches, patch panels and fiber panels each occupy one PositionInRack;
// no two occupants of a rack share a position.
type Rack struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Location  string    `json:"location"`
	Slots     int       `gorm:"not null" json:"slots"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
