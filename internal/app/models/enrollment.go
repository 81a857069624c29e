package models

import (
	"time"

	"gorm.io/datatypes"
)

// Enrollment is the submission as received from intake. The three payloads are
// stored verbatim; only the field remapper reads them.
type Enrollment struct {
	ID                     EnrollmentID   `json:"id" db:"id"`
	StudentID              *StudentID     `json:"student_id,omitempty" db:"student_id"`
	ConfirmedPersonalData  datatypes.JSON `json:"confirmed_personal_data,omitempty" db:"confirmed_personal_data"`
	ConfirmedAddressData   datatypes.JSON `json:"confirmed_address_data,omitempty" db:"confirmed_address_data"`
	ConfirmedSchoolingData datatypes.JSON `json:"confirmed_schooling_data,omitempty" db:"confirmed_schooling_data"`
	CreatedAt              time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at" db:"updated_at"`
}

// Payload returns the raw payload stored for kind
func (e *Enrollment) Payload(kind EntityKind) datatypes.JSON {
	switch kind {
	case KindPersonal:
		return e.ConfirmedPersonalData
	case KindAddress:
		return e.ConfirmedAddressData
	case KindSchooling:
		return e.ConfirmedSchoolingData
	default:
		return nil
	}
}

// IsLinkedTo reports whether the back-reference already points at id
func (e *Enrollment) IsLinkedTo(id StudentID) bool {
	return e.StudentID != nil && *e.StudentID == id
}

// Student is the canonical identity all student data hangs off
type Student struct {
	ID           StudentID    `json:"id" db:"id"`
	EnrollmentID EnrollmentID `json:"enrollment_id" db:"enrollment_id"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
