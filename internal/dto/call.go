package dto

type SimulateCallRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	Language    string `json:"language"`
	Engine      string `json:"engine"`
}

type CallTurnResponse struct {
	Utterance      string `json:"utterance"`
	Intent         string `json:"intent"`
	SpokenResponse string `json:"spoken_response"`
	Failed         bool   `json:"failed,omitempty"`
	FailReason     string `json:"fail_reason,omitempty"`
	Timestamp      string `json:"timestamp"`
}

type CallResponse struct {
	CallID      string             `json:"call_id"`
	PhoneNumber string             `json:"phone_number"`
	Language    string             `json:"language"`
	Engine      string             `json:"engine"`
	State       string             `json:"state"`
	DurationSec int                `json:"duration"`
	Message     string             `json:"message"`
	Turns       []CallTurnResponse `json:"turns,omitempty"`
}
