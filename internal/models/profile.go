package models

// Designations with special routing rules. Anything else is matched by
// department prefix.
const (
	DesignationDirector     = "DIRECTOR"
	DesignationAO           = "AO"
	DesignationAdminOfficer = "Administrative Officer"
)

// Primary category segments with designation-level routing.
const (
	CategoryRagging        = "Ragging"
	CategoryAdministration = "Administration"
	CategoryOthers         = "Others"
)

// StudentProfile holds institution attributes for a student account.
type StudentProfile struct {
	StudentID string `db:"student_id" json:"student_id"`
	UserID    string `db:"user_id" json:"-"`
	FullName  string `db:"full_name" json:"full_name"`
	Year      string `db:"year" json:"year"`
	Branch    string `db:"branch" json:"branch"`
	Gender    string `db:"gender" json:"gender"`
}

// AuthorityProfile identifies a responsible official. Ownership is
// administratively managed; the engine never mutates it.
type AuthorityProfile struct {
	EmployeeID  string `db:"employee_id" json:"employee_id"`
	UserID      string `db:"user_id" json:"-"`
	FullName    string `db:"full_name" json:"full_name"`
	Department  string `db:"department" json:"department"`
	Designation string `db:"designation" json:"designation"`
	Gender      string `db:"gender" json:"gender"`
}
