package model

import "time"

// Book describes a catalog entry together with its copy accounting.
// CopiesAvailable is decremented once per active loan and
// incremented once per return; the engine keeps
// 0 <= CopiesAvailable <= CopiesTotal at all times.  This struct
// corresponds to a row in the `books` table.
//
// Fields:
//  ID              – primary key identifier.
//  Title           – book title.
//  Author          – author line as printed.
//  Publisher       – publishing house.
//  ISBN            – unique ISBN string.
//  Year            – year of publication.
//  Edition         – optional edition label.
//  Description     – catalog description.
//  Subjects        – subject tags used for the popular-category stat.
//  Location        – shelf location code (e.g. "CS-101").
//  CopiesTotal     – number of physical copies owned.
//  CopiesAvailable – copies currently on the shelf.
//  CoverImage      – optional cover image URL.
//  AddedBy         – user who added the entry (nil for seed data).
//  AddedAt         – timestamp when the entry was created.
type Book struct {
	ID              uint64    `json:"id"`                    // books.id
	Title           string    `json:"title"`                 // books.title
	Author          string    `json:"author"`                // books.author
	Publisher       string    `json:"publisher"`             // books.publisher
	ISBN            string    `json:"isbn"`                  // books.isbn
	Year            int       `json:"year"`                  // books.year
	Edition         *string   `json:"edition,omitempty"`     // books.edition (nullable)
	Description     string    `json:"description"`           // books.description
	Subjects        []string  `json:"subjects"`              // books.subjects
	Location        string    `json:"location"`              // books.location
	CopiesTotal     int       `json:"copies_total"`          // books.copies_total
	CopiesAvailable int       `json:"copies_available"`      // books.copies_available
	CoverImage      *string   `json:"cover_image,omitempty"` // books.cover_image (nullable)
	AddedBy         *uint64   `json:"added_by,omitempty"`    // books.added_by (nullable)
	AddedAt         time.Time `json:"added_at"`              // books.added_at
}
