package model

// GroupMember is owned by the group subsystem; this service only reads it.
type GroupMember struct {
	GroupID   uint `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	StudentID uint `gorm:"primaryKey;autoIncrement:false" json:"student_id"`
}
