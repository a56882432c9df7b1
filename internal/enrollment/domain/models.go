// Package domain contains the tenant-scoped school records. Every type
// here carries a tenant foreign key and is removed wholesale when its
// tenant is destroyed.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Student is the counted record kind: creating, deleting or moving one
// adjusts the owning tenant's member_count.
type Student struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	FirstName string            `gorm:"type:text;not null" json:"first_name"`
	LastName  string            `gorm:"type:text;not null" json:"last_name"`
	ClassName string            `gorm:"type:text" json:"class_name"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (Student) TableName() string { return "students" }

type StaffMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	FullName  string       `gorm:"type:text;not null" json:"full_name"`
	Title     string       `gorm:"type:text" json:"title"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (StaffMember) TableName() string { return "staff_members" }

type AttendanceEntry struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	StudentID snowflake.ID `gorm:"not null;index" json:"student_id"`
	Date      time.Time    `gorm:"not null" json:"date"`
	Present   bool         `gorm:"not null" json:"present"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (AttendanceEntry) TableName() string { return "attendance_entries" }

type Assessment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	StudentID snowflake.ID `gorm:"not null;index" json:"student_id"`
	Subject   string       `gorm:"type:text;not null" json:"subject"`
	Score     int          `gorm:"not null" json:"score"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Assessment) TableName() string { return "assessments" }

type Notice struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Body      string       `gorm:"type:text" json:"body"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Notice) TableName() string { return "notices" }

type TimetableSlot struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID `gorm:"not null;index" json:"tenant_id"`
	ClassName string       `gorm:"type:text;not null" json:"class_name"`
	Subject   string       `gorm:"type:text;not null" json:"subject"`
	DayOfWeek int          `gorm:"not null" json:"day_of_week"`
	StartsAt  string       `gorm:"type:text" json:"starts_at"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (TimetableSlot) TableName() string { return "timetable_slots" }

type CreateStudentRequest struct {
	TenantID  snowflake.ID
	FirstName string
	LastName  string
	ClassName string
}

type Service interface {
	CreateStudent(ctx context.Context, req CreateStudentRequest) (*Student, error)
	DeleteStudent(ctx context.Context, tenantID, studentID snowflake.ID) error
	TransferStudent(ctx context.Context, studentID, fromTenantID, toTenantID snowflake.ID) error
}

var (
	ErrInvalidStudent  = errors.New("invalid_student")
	ErrStudentNotFound = errors.New("student_not_found")
	ErrInvalidTenant   = errors.New("invalid_tenant")
)
