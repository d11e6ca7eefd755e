package dto

type QuestionRequest struct {
	Question string `json:"question" validate:"required"`
	Language string `json:"language"`
}

type QuestionResponse struct {
	Question     string   `json:"question"`
	Language     string   `json:"language"`
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence"`
	Sources      []string `json:"sources"`
	QuestionType string   `json:"question_type"`
}
