package dto

type UploadDocumentResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
	FileName   string `json:"filename"`
	Category   string `json:"category"`
}

type DocumentResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"filename"`
	Description string `json:"description"`
	Category    string `json:"category"`
	UploadTime  string `json:"upload_time"`
	Size        int64  `json:"size"`
	Extension   string `json:"extension"`
	Status      string `json:"status"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

type DocumentSummaryResponse struct {
	ID            string   `json:"id"`
	FileName      string   `json:"filename"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	UploadTime    string   `json:"upload_time"`
	SectionCount  int      `json:"sections"`
	SectionTitles []string `json:"section_titles"`
	TextLength    int      `json:"text_length"`
}
