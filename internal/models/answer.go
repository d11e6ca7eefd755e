package models

type QuestionType string

const (
	QuestionTypeServices   QuestionType = "services"
	QuestionTypePricing    QuestionType = "pricing"
	QuestionTypeContact    QuestionType = "contact"
	QuestionTypeTechnology QuestionType = "technology"
	QuestionTypeGeneral    QuestionType = "general"
)

// KnowledgeAnswer is computed fresh per query and never persisted.
// Sources are "<filename> - <section title>" strings in score order.
type KnowledgeAnswer struct {
	Answer       string       `json:"answer"`
	Confidence   float64      `json:"confidence"`
	Sources      []string     `json:"sources"`
	QuestionType QuestionType `json:"question_type"`
}
