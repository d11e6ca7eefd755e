package models

// Section is a bounded, titled chunk of extracted document text, the unit
// of retrieval. Sections are created only by a successful ingestion and are
// never mutated afterwards; re-ingesting a document replaces its whole
// section set atomically.
type Section struct {
	DocumentID string `db:"document_id"`
	Title      string `db:"title"`
	Text       string `db:"text"`
	Ordinal    int    `db:"ordinal"`
}
