package model

import "time"

// ResearchPaper is a shared paper uploaded by faculty.  The file
// itself lives outside this service; FilePath is the download
// location handed to the email templates.  This struct corresponds
// to a row in the `research_papers` table.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – paper title.
//  Author      – author line.
//  Journal     – optional journal name.
//  PublishDate – publication date (date precision).
//  Subject     – subject classification.
//  Abstract    – optional abstract text.
//  FilePath    – download path or URL.
//  UploadedBy  – faculty user who uploaded the record.
//  UploadedAt  – upload timestamp.
type ResearchPaper struct {
	ID          uint64    `json:"id"`                 // research_papers.id
	Title       string    `json:"title"`              // research_papers.title
	Author      string    `json:"author"`             // research_papers.author
	Journal     *string   `json:"journal,omitempty"`  // research_papers.journal (nullable)
	PublishDate time.Time `json:"publish_date"`       // research_papers.publish_date
	Subject     string    `json:"subject"`            // research_papers.subject
	Abstract    *string   `json:"abstract,omitempty"` // research_papers.abstract (nullable)
	FilePath    string    `json:"file_path"`          // research_papers.file_path
	UploadedBy  uint64    `json:"uploaded_by"`        // research_papers.uploaded_by
	UploadedAt  time.Time `json:"uploaded_at"`        // research_papers.uploaded_at
}
