package models

import (
	"time"
)

type DocumentStatus string

const (
	DocumentStatusUnprocessed DocumentStatus = "unprocessed"
	DocumentStatusProcessing  DocumentStatus = "processing"
	DocumentStatusProcessed   DocumentStatus = "processed"
	DocumentStatusFailed      DocumentStatus = "failed"
)

// AllowedExtensions is the upload whitelist; anything else is rejected
// before a document record is created.
var AllowedExtensions = []string{".pdf", ".docx", ".xlsx", ".xls", ".csv", ".txt"}

type Document struct {
	ID             string         `db:"id"`
	FileName       string         `db:"file_name"`
	StoredFileName string         `db:"stored_file_name"`
	Path           string         `db:"path"`
	Description    string         `db:"description"`
	Category       string         `db:"category"`
	Extension      string         `db:"extension"`
	Size           int64          `db:"size"`
	UploadTime     time.Time      `db:"upload_time"`
	Status         DocumentStatus `db:"status"`
}

func ExtensionAllowed(ext string) bool {
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
