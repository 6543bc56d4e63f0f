package models

import "time"

// History actions.
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// ConnectionHistory is the append-only audit log of link creates/deletes.
// Rows written by one operation share an OperationID.
type ConnectionHistory struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	OperationID string       `gorm:"size:36;index" json:"operation_id"`
	SourceType  EndpointKind `gorm:"size:16;index:idx_history_source,priority:1" json:"source_type"`
	SourceID    uint         `gorm:"index:idx_history_source,priority:2" json:"source_id"`
	SourcePort  int          `gorm:"index:idx_history_source,priority:3" json:"source_port"`
	TargetType  EndpointKind `gorm:"size:16" json:"target_type"`
	TargetID    uint         `json:"target_id"`
	TargetPort  int          `json:"target_port"`
	Action      string       `gorm:"size:16;not null" json:"action"`
	OldValues   string       `gorm:"type:text" json:"old_values"`
	NewValues   string       `gorm:"type:text" json:"new_values"`
	User        string       `gorm:"size:64" json:"user"`
	CreatedAt   time.Time    `gorm:"index" json:"created_at"`
}

// TableName keeps the singular table name the rest of the tooling expects.
func (ConnectionHistory) TableName() string { return "connection_history" }

// AlarmHistory is the append-only log of alarm status transitions.
type AlarmHistory struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	AlarmID       uint        `gorm:"not null;index" json:"alarm_id"`
	OldStatus     AlarmStatus `gorm:"size:16" json:"old_status"`
	NewStatus     AlarmStatus `gorm:"size:16" json:"new_status"`
	ChangeReason  string      `gorm:"size:32" json:"change_reason"`
	ChangeMessage string      `gorm:"type:text" json:"change_message"`
	CreatedAt     time.Time   `json:"created_at"`
}

// TableName keeps the singular table name the rest of the tooling expects.
func (AlarmHistory) TableName() string { return "alarm_history" }
