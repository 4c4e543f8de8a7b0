package domain

import "time"

type AuditEntity string

const (
	AuditEntityRefueling AuditEntity = "refueling"
	AuditEntityIntake    AuditEntity = "intake"
	AuditEntityTank      AuditEntity = "tank"
)

// AuditNote is an append-only message attached to a record.
type AuditNote struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	Entity    AuditEntity `json:"entity" gorm:"size:16;index:idx_audit_entity"`
	EntityID  uint        `json:"entity_id" gorm:"index:idx_audit_entity"`
	AuthorID  uint        `json:"author_id"`
	Body      string      `json:"body"`
	CreatedAt time.Time   `json:"created_at"`
}

type Attachment struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Filename    string    `json:"filename" gorm:"size:255"`
	ContentType string    `json:"content_type" gorm:"size:128"`
	Size        int       `json:"size"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
