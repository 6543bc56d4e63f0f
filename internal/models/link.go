package models

// EndpointKind discriminates the three port tables that can hold a link.
type EndpointKind string

const (
	KindSwitch    EndpointKind = "switch"
	KindPatchPort EndpointKind = "patch_port"
	KindFiberPort EndpointKind = "fiber_port"
)

// Valid reports whether k names one of the three port tables.
func (k EndpointKind) Valid() bool {
	switch k {
	case KindSwitch, KindPatchPort, KindFiberPort:
		return true
	}
	return false
}

// LinkStatus is the physical state of a port row.
type LinkStatus string

const (
	StatusInactive LinkStatus = "inactive"
	StatusActive   LinkStatus = "active"
)

// Counterpart is the reciprocal pointer every port table carries.
//
// Kind == "" means the port is unlinked; ID is the parent switch/panel ID and
// Port the port number on that parent. The same column triple sits on switch
// ports, patch ports and fiber ports so a fiber link is just as typed on the
// switch side as on the panel side.
type Counterpart struct {
	CounterpartKind EndpointKind `gorm:"column:counterpart_kind;size:16" json:"counterpart_kind,omitempty"`
	CounterpartID   *uint        `gorm:"column:counterpart_id;index" json:"counterpart_id,omitempty"`
	CounterpartPort *int         `gorm:"column:counterpart_port" json:"counterpart_port,omitempty"`
}

// Linked reports whether the pointer is set.
func (c Counterpart) Linked() bool {
	return c.CounterpartKind != "" && c.CounterpartID != nil && c.CounterpartPort != nil
}
