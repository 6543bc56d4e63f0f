package models

import "time"

// Severity of an alarm, assigned from its type.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// AlarmStatus is the lifecycle state of an alarm.
type AlarmStatus string

const (
	AlarmActive       AlarmStatus = "ACTIVE"
	AlarmAcknowledged AlarmStatus = "ACKNOWLEDGED"
	AlarmResolved     AlarmStatus = "RESOLVED"
)

// AlarmType names the kind of port change detected.
type AlarmType string

const (
	AlarmDeviceUnreachable  AlarmType = "device_unreachable"
	AlarmMACMoved           AlarmType = "mac_moved"
	AlarmMACAdded           AlarmType = "mac_added"
	AlarmVLANChanged        AlarmType = "vlan_changed"
	AlarmDescriptionChanged AlarmType = "description_changed"
	AlarmPortDown           AlarmType = "port_down"
	AlarmPortUp             AlarmType = "port_up"
)

// Alarm is one lineage of a (device, port, type) change. Repeats inside the
// dedup window bump OccurrenceCount instead of adding rows. OldValue is the
// baseline from the first occurrence; NewValue tracks the latest.
type Alarm struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	DeviceID        uint        `gorm:"not null;index:idx_alarm_lineage,priority:1" json:"device_id"`
	PortNumber      int         `gorm:"index:idx_alarm_lineage,priority:2" json:"port_number"`
	AlarmType       AlarmType   `gorm:"size:32;not null;index:idx_alarm_lineage,priority:3" json:"alarm_type"`
	Status          AlarmStatus `gorm:"size:16;not null;index:idx_alarm_lineage,priority:4" json:"status"`
	Severity        Severity    `gorm:"size:16;not null" json:"severity"`
	Title           string      `json:"title"`
	Message         string      `gorm:"type:text" json:"message"`
	OldValue        string      `gorm:"type:text" json:"old_value"`
	NewValue        string      `gorm:"type:text" json:"new_value"`
	MACAddress      string      `gorm:"size:17" json:"mac_address,omitempty"`
	OccurrenceCount int         `gorm:"not null;default:1" json:"occurrence_count"`
	FirstOccurrence time.Time   `json:"first_occurrence"`
	LastOccurrence  time.Time   `json:"last_occurrence"`
	SilenceUntil    *time.Time  `json:"silence_until,omitempty"`

	AcknowledgedAt     *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy     string     `json:"acknowledged_by,omitempty"`
	AcknowledgmentType string     `gorm:"size:16" json:"acknowledgment_type,omitempty"`
	Note               string     `gorm:"type:text" json:"note,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy         string     `json:"resolved_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Silenced reports whether the alarm is hidden from the attention view at t.
func (a Alarm) Silenced(t time.Time) bool {
	return a.SilenceUntil != nil && a.SilenceUntil.After(t)
}

// AcknowledgedPortMAC is the whitelist the SNMP worker consults to suppress
// alarms for an expected (device, port, MAC) combination.
type AcknowledgedPortMAC struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DeviceName     string    `gorm:"not null;uniqueIndex:idx_whitelist_entry,priority:1" json:"device_name"`
	PortNumber     int       `gorm:"not null;uniqueIndex:idx_whitelist_entry,priority:2" json:"port_number"`
	MACAddress     string    `gorm:"size:17;not null;uniqueIndex:idx_whitelist_entry,priority:3" json:"mac_address"`
	AcknowledgedBy string    `json:"acknowledged_by"`
	Note           string    `gorm:"type:text" json:"note"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName matches the table the SNMP worker reads.
func (AcknowledgedPortMAC) TableName() string { return "acknowledged_port_mac" }
