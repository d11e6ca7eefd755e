package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	GigaChat  GigaChatConfig
	Upload    UploadConfig
	Knowledge KnowledgeConfig
	Call      CallConfig
	Telephony TelephonyConfig
	Logger    LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

// GigaChatConfig configures the optional LLM-backed intent interpreter.
// With an empty APIKey the rule-based interpreter is used instead.
type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
}

type UploadConfig struct {
	Dir          string
	MaxSizeBytes int64
}

type KnowledgeConfig struct {
	SectionMaxChars     int
	QueueSize           int
	Workers             int
	ConfidenceThreshold float64
	TopSections         int
}

type CallConfig struct {
	TurnTimeout        time.Duration
	RingTimeout        time.Duration
	MaxTurnFailures    int
	UtteranceQueueSize int
}

type TelephonyConfig struct {
	Host           string
	Port           string
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	ReconnectLimit int
}

func Load() (*Config, error) {
	// .env is optional; environment variables alone are fine for Docker/K8s.
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "true") == "true"

	maxUpload, _ := strconv.ParseInt(getEnv("UPLOAD_MAX_SIZE_BYTES", "20971520"), 10, 64)
	sectionMax, _ := strconv.Atoi(getEnv("KNOWLEDGE_SECTION_MAX_CHARS", "2000"))
	queueSize, _ := strconv.Atoi(getEnv("KNOWLEDGE_QUEUE_SIZE", "64"))
	workers, _ := strconv.Atoi(getEnv("KNOWLEDGE_WORKERS", "4"))
	threshold, _ := strconv.ParseFloat(getEnv("KNOWLEDGE_CONFIDENCE_THRESHOLD", "0.3"), 64)
	topSections, _ := strconv.Atoi(getEnv("KNOWLEDGE_TOP_SECTIONS", "2"))

	turnTimeout, _ := strconv.Atoi(getEnv("CALL_TURN_TIMEOUT_SECONDS", "15"))
	ringTimeout, _ := strconv.Atoi(getEnv("CALL_RING_TIMEOUT_SECONDS", "30"))
	maxTurnFailures, _ := strconv.Atoi(getEnv("CALL_MAX_TURN_FAILURES", "3"))
	utteranceQueue, _ := strconv.Atoi(getEnv("CALL_UTTERANCE_QUEUE_SIZE", "16"))

	backoffBase, _ := strconv.Atoi(getEnv("TELEPHONY_BACKOFF_BASE_MS", "500"))
	backoffMax, _ := strconv.Atoi(getEnv("TELEPHONY_BACKOFF_MAX_MS", "30000"))
	reconnectLimit, _ := strconv.Atoi(getEnv("TELEPHONY_RECONNECT_LIMIT", "10"))

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "calling_agent"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: insecureSkipVerify,
		},
		Upload: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxSizeBytes: maxUpload,
		},
		Knowledge: KnowledgeConfig{
			SectionMaxChars:     sectionMax,
			QueueSize:           queueSize,
			Workers:             workers,
			ConfidenceThreshold: threshold,
			TopSections:         topSections,
		},
		Call: CallConfig{
			TurnTimeout:        time.Duration(turnTimeout) * time.Second,
			RingTimeout:        time.Duration(ringTimeout) * time.Second,
			MaxTurnFailures:    maxTurnFailures,
			UtteranceQueueSize: utteranceQueue,
		},
		Telephony: TelephonyConfig{
			Host:           getEnv("TELEPHONY_HOST", "localhost"),
			Port:           getEnv("TELEPHONY_PORT", "5038"),
			BackoffBase:    time.Duration(backoffBase) * time.Millisecond,
			BackoffMax:     time.Duration(backoffMax) * time.Millisecond,
			ReconnectLimit: reconnectLimit,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
