package dto

type TTSDemoRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Engine   string `json:"engine"`
}

type TTSDemoResponse struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	Engine     string `json:"engine"`
	AudioBytes int    `json:"audio_bytes"`
}

type HealthResponse struct {
	Status             string   `json:"status"`
	TelephonyConnected bool     `json:"telephony_connected"`
	KnowledgeReady     bool     `json:"knowledge_ready"`
	ActiveCalls        int64    `json:"active_calls"`
	SupportedLanguages []string `json:"supported_languages"`
	TTSEngines         []string `json:"tts_engines"`
}
