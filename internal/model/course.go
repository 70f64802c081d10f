package model

// Course is an academic course that can carry a recommended reading
// list.  This struct corresponds to a row in the `courses` table.
//
// Fields:
//  ID          – primary key identifier.
//  Code        – unique course code (e.g. "CS-301").
//  Name        – course name.
//  Description – optional description.
//  Department  – owning department.
type Course struct {
	ID          uint64  `json:"id"`                    // courses.id
	Code        string  `json:"code"`                  // courses.code
	Name        string  `json:"name"`                  // courses.name
	Description *string `json:"description,omitempty"` // courses.description (nullable)
	Department  string  `json:"department"`            // courses.department
}

// CourseBook links a book into a course reading list.  Priority
// orders the list; IsRequired separates required reading from
// supplementary titles.  This struct corresponds to a row in the
// `course_books` table.
type CourseBook struct {
	ID         uint64 `json:"id"`          // course_books.id
	CourseID   uint64 `json:"course_id"`   // course_books.course_id
	BookID     uint64 `json:"book_id"`     // course_books.book_id
	AddedBy    uint64 `json:"added_by"`    // course_books.added_by
	Priority   int    `json:"priority"`    // course_books.priority
	IsRequired bool   `json:"is_required"` // course_books.is_required
}
