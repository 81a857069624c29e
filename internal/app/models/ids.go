package models

import "github.com/google/uuid"

// One identifier type per record kind. Converting between kinds is explicit,
// so a personal-data id can never be passed where a student id is expected.
type (
	EnrollmentID   string
	StudentID      string
	PersonalDataID string
	AddressID      string
	SchoolingID    string
	DocumentID     string

	// DocumentSetKey groups uploaded documents; in practice it is an enrollment id.
	DocumentSetKey string

	// SeedID is the id an editor opens a record with. It may be a StudentID or a
	// PersonalDataID; only the merge step decides which.
	SeedID string
)

// NewStudentID generates a fresh student identity id
func NewStudentID() StudentID { return StudentID(uuid.NewString()) }

// NewEnrollmentID generates a fresh enrollment id
func NewEnrollmentID() EnrollmentID { return EnrollmentID(uuid.NewString()) }

func (id EnrollmentID) String() string   { return string(id) }
func (id StudentID) String() string      { return string(id) }
func (id PersonalDataID) String() string { return string(id) }
func (id AddressID) String() string      { return string(id) }
func (id SchoolingID) String() string    { return string(id) }
func (id DocumentID) String() string     { return string(id) }
func (k DocumentSetKey) String() string  { return string(k) }
func (id SeedID) String() string         { return string(id) }

// DocumentSetKey returns the key documents of this enrollment are stored under
func (id EnrollmentID) DocumentSetKey() DocumentSetKey { return DocumentSetKey(id) }
