// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler client/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// TwilioConfig provides settings for the Twilio voice provider.
type TwilioConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioFromNumber() string
	GetServerBaseURL() string
}

// ElevenLabsConfig provides settings for the ElevenLabs voice agent.
type ElevenLabsConfig interface {
	GetElevenLabsAPIKey() string
	GetElevenLabsAgentID() string
	GetElevenLabsPhoneNumberID() string
	IsVoiceAgentEnabled() bool
}

// AIConfig provides settings for the Gemini text generation client.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
}

// DispatcherConfig provides settings for the call dispatcher loop.
type DispatcherConfig interface {
	GetDispatchInterval() time.Duration
	GetDispatchBatchSize() int
	GetDispatchConcurrency() int
	GetProviderTimeout() time.Duration
	GetPlaceCallMaxRetries() int
	GetPlaceCallRetryBackoff() time.Duration
}

// ScheduleConfig provides settings for the call schedule generator.
type ScheduleConfig interface {
	GetScheduleHorizonWeeks() int
	GetCheckinWeekday() time.Weekday
	GetCheckinTime() (hour, minute int)
	GetHighRiskCheckinWeekday() time.Weekday
	GetMonitoringWeekday() time.Weekday
	GetMonitoringTime() (hour, minute int)
	GetCallbackDelay() time.Duration
}

// EmailConfig provides settings for operator alert emails.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetOperatorEmail() string
	IsEmailEnabled() bool
}

// StorageConfig provides settings for MinIO recording archival.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIORecordingsBucket() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool
	ServerBaseURL  string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	ElevenLabsAPIKey        string
	ElevenLabsAgentID       string
	ElevenLabsPhoneNumberID string
	VoiceAgentEnabled       bool

	GeminiAPIKey string
	GeminiModel  string

	DispatchInterval      time.Duration
	DispatchBatchSize     int
	DispatchConcurrency   int
	ProviderTimeout       time.Duration
	PlaceCallMaxRetries   int
	PlaceCallRetryBackoff time.Duration

	ScheduleHorizonWeeks   int
	CheckinWeekday         time.Weekday
	CheckinHour            int
	CheckinMinute          int
	HighRiskCheckinWeekday time.Weekday
	MonitoringWeekday      time.Weekday
	MonitoringHour         int
	MonitoringMinute       int
	CallbackDelay          time.Duration

	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	OperatorEmail    string
	OperatorPhone    string

	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIORecordingsBucket string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// TwilioConfig implementation
func (c *Config) GetTwilioAccountSID() string { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string  { return c.TwilioAuthToken }
func (c *Config) GetTwilioFromNumber() string { return c.TwilioFromNumber }
func (c *Config) GetServerBaseURL() string    { return c.ServerBaseURL }

// ElevenLabsConfig implementation
func (c *Config) GetElevenLabsAPIKey() string        { return c.ElevenLabsAPIKey }
func (c *Config) GetElevenLabsAgentID() string       { return c.ElevenLabsAgentID }
func (c *Config) GetElevenLabsPhoneNumberID() string { return c.ElevenLabsPhoneNumberID }
func (c *Config) IsVoiceAgentEnabled() bool {
	return c.VoiceAgentEnabled && c.ElevenLabsAPIKey != "" && c.ElevenLabsAgentID != ""
}

// AIConfig implementation
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }

// DispatcherConfig implementation
func (c *Config) GetDispatchInterval() time.Duration      { return c.DispatchInterval }
func (c *Config) GetDispatchBatchSize() int               { return c.DispatchBatchSize }
func (c *Config) GetDispatchConcurrency() int             { return c.DispatchConcurrency }
func (c *Config) GetProviderTimeout() time.Duration       { return c.ProviderTimeout }
func (c *Config) GetPlaceCallMaxRetries() int             { return c.PlaceCallMaxRetries }
func (c *Config) GetPlaceCallRetryBackoff() time.Duration { return c.PlaceCallRetryBackoff }

// ScheduleConfig implementation
func (c *Config) GetScheduleHorizonWeeks() int            { return c.ScheduleHorizonWeeks }
func (c *Config) GetCheckinWeekday() time.Weekday         { return c.CheckinWeekday }
func (c *Config) GetCheckinTime() (int, int)              { return c.CheckinHour, c.CheckinMinute }
func (c *Config) GetHighRiskCheckinWeekday() time.Weekday { return c.HighRiskCheckinWeekday }
func (c *Config) GetMonitoringWeekday() time.Weekday      { return c.MonitoringWeekday }
func (c *Config) GetMonitoringTime() (int, int)           { return c.MonitoringHour, c.MonitoringMinute }
func (c *Config) GetCallbackDelay() time.Duration         { return c.CallbackDelay }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetOperatorEmail() string    { return c.OperatorEmail }
func (c *Config) GetOperatorPhone() string    { return c.OperatorPhone }
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.OperatorEmail != ""
}

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string         { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string        { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string        { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool             { return c.MinIOUseSSL }
func (c *Config) GetMinIORecordingsBucket() string { return c.MinIORecordingsBucket }
func (c *Config) IsMinIOEnabled() bool             { return c.MinIOEndpoint != "" }

// voiceFile mirrors the optional provider config file layout. Environment
// variables always win; the file only fills in blanks.
type voiceFile struct {
	Twilio struct {
		AccountSID string `yaml:"account_sid"`
		AuthToken  string `yaml:"auth_token"`
		FromNumber string `yaml:"from_number"`
	} `yaml:"twilio"`
	ElevenLabs struct {
		APIKey        string `yaml:"api_key"`
		AgentID       string `yaml:"agent_id"`
		PhoneNumberID string `yaml:"phone_number_id"`
		Enabled       bool   `yaml:"enabled"`
	} `yaml:"elevenlabs"`
}

// Load reads configuration from environment variables, with an optional
// provider config file (VOICE_CONFIG_FILE, default config.yaml) as fallback
// for the Twilio/ElevenLabs credentials.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	vf := loadVoiceFile(getEnv("VOICE_CONFIG_FILE", "config.yaml"))

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		ServerBaseURL:  strings.TrimRight(getEnv("SERVER_BASE_URL", "http://localhost:8080"), "/"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", vf.Twilio.AccountSID),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", vf.Twilio.AuthToken),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", vf.Twilio.FromNumber),

		ElevenLabsAPIKey:        getEnv("ELEVEN_API_KEY", vf.ElevenLabs.APIKey),
		ElevenLabsAgentID:       getEnv("ELEVEN_AGENT_ID", vf.ElevenLabs.AgentID),
		ElevenLabsPhoneNumberID: getEnv("ELEVEN_PHONE_NUMBER_ID", vf.ElevenLabs.PhoneNumberID),
		VoiceAgentEnabled:       boolEnv("VOICE_AGENT_ENABLED", vf.ElevenLabs.Enabled),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		DispatchInterval:      mustDuration(getEnv("DISPATCH_INTERVAL", "30s")),
		DispatchBatchSize:     mustInt(getEnv("DISPATCH_BATCH_SIZE", "50")),
		DispatchConcurrency:   mustInt(getEnv("DISPATCH_CONCURRENCY", "8")),
		ProviderTimeout:       mustDuration(getEnv("PROVIDER_TIMEOUT", "15s")),
		PlaceCallMaxRetries:   mustInt(getEnv("PLACE_CALL_MAX_RETRIES", "3")),
		PlaceCallRetryBackoff: mustDuration(getEnv("PLACE_CALL_RETRY_BACKOFF", "500ms")),

		ScheduleHorizonWeeks:   mustInt(getEnv("SCHEDULE_HORIZON_WEEKS", "4")),
		CheckinWeekday:         parseWeekday(getEnv("CHECKIN_WEEKDAY", "Tue"), time.Tuesday),
		HighRiskCheckinWeekday: parseWeekday(getEnv("HIGH_RISK_CHECKIN_WEEKDAY", "Fri"), time.Friday),
		MonitoringWeekday:      parseWeekday(getEnv("MONITORING_WEEKDAY", "Wed"), time.Wednesday),
		CallbackDelay:          mustDuration(getEnv("CALLBACK_DELAY", "10m")),

		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "SabCare"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		OperatorEmail:    getEnv("OPERATOR_EMAIL", ""),
		OperatorPhone:    getEnv("OPERATOR_PHONE", ""),

		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIORecordingsBucket: getEnv("MINIO_BUCKET_RECORDINGS", "patient-recordings"),
	}

	cfg.CheckinHour, cfg.CheckinMinute = parseClock(getEnv("CHECKIN_TIME", "10:00"), 10, 0)
	cfg.MonitoringHour, cfg.MonitoringMinute = parseClock(getEnv("MONITORING_TIME", "14:00"), 14, 0)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.ScheduleHorizonWeeks < 1 {
		return nil, fmt.Errorf("SCHEDULE_HORIZON_WEEKS must be at least 1")
	}
	if cfg.DispatchInterval <= 0 {
		return nil, fmt.Errorf("DISPATCH_INTERVAL must be positive")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func loadVoiceFile(path string) voiceFile {
	var vf voiceFile
	if path == "" {
		return vf
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return vf
	}
	_ = yaml.Unmarshal(data, &vf)
	return vf
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		return strings.EqualFold(val, "true")
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseWeekday(value string, fallback time.Weekday) time.Weekday {
	key := strings.ToLower(strings.TrimSpace(value))
	if len(key) > 3 {
		key = key[:3]
	}
	if day, ok := weekdays[key]; ok {
		return day
	}
	return fallback
}

func parseClock(value string, fallbackHour, fallbackMinute int) (int, int) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return fallbackHour, fallbackMinute
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fallbackHour, fallbackMinute
	}
	return hour, minute
}
