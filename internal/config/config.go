package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// Speech-to-text (OpenAI-compatible transcription endpoint).
	OpenAIKey   string
	STTModel    string
	STTLanguage string

	// Text generation.
	CerebrasKey     string
	CerebrasModelID string

	// Speech synthesis. Provider is "elevenlabs" or "deepgram".
	TTSProvider       string
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	DeepgramKey       string
	DeepgramModel     string

	// Optional recording archive.
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	// Persisted session list.
	SessionsDBPath string

	// Optional canned-answer rules file.
	CannedRulesPath string

	// Pipeline cycle tuning.
	CycleInterval      time.Duration
	MinClipBytes       int
	MinTranscriptChars int

	LogDir string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		slog.Warn("OPENAI_API_KEY not set - transcription will not work")
	}
	sttModel := os.Getenv("STT_MODEL")
	if sttModel == "" {
		sttModel = "whisper-1"
	}
	sttLanguage := os.Getenv("STT_LANGUAGE")
	if sttLanguage == "" {
		sttLanguage = "en"
	}

	cerebrasKey := os.Getenv("CEREBRAS_API_KEY")
	cerebrasModel := os.Getenv("CEREBRAS_MODEL_ID")
	if cerebrasModel == "" {
		cerebrasModel = "gpt-oss-120b"
	}
	if cerebrasKey == "" {
		slog.Warn("CEREBRAS_API_KEY not set - replies fall back to canned answers")
	}

	ttsProvider := os.Getenv("TTS_PROVIDER")
	if ttsProvider == "" {
		ttsProvider = "elevenlabs"
	}
	elevenKey := os.Getenv("ELEVENLABS_API_KEY")
	voiceID := os.Getenv("ELEVENLABS_VOICE_ID")
	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	deepgramModel := os.Getenv("DEEPGRAM_TTS_MODEL")
	if ttsProvider == "elevenlabs" && elevenKey == "" {
		slog.Warn("ELEVENLABS_API_KEY not set - TTS will not work")
	}
	if ttsProvider == "deepgram" && deepgramKey == "" {
		slog.Warn("DEEPGRAM_API_KEY not set - TTS will not work")
	}

	bucket := os.Getenv("SUPABASE_BUCKET")
	if bucket == "" {
		bucket = "call-recordings"
	}

	dbPath := os.Getenv("SESSIONS_DB_PATH")
	if dbPath == "" {
		dbPath = "data/sessions.db"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	cfg := Config{
		HTTPAddress:        addr,
		OpenAIKey:          openAIKey,
		STTModel:           sttModel,
		STTLanguage:        sttLanguage,
		CerebrasKey:        cerebrasKey,
		CerebrasModelID:    cerebrasModel,
		TTSProvider:        ttsProvider,
		ElevenLabsKey:      elevenKey,
		ElevenLabsVoiceID:  voiceID,
		DeepgramKey:        deepgramKey,
		DeepgramModel:      deepgramModel,
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseKey:        os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     bucket,
		SessionsDBPath:     dbPath,
		CannedRulesPath:    os.Getenv("CANNED_RULES_PATH"),
		CycleInterval:      envDuration("CYCLE_INTERVAL_MS", 5000*time.Millisecond),
		MinClipBytes:       envInt("MIN_CLIP_BYTES", 3200),
		MinTranscriptChars: envInt("MIN_TRANSCRIPT_CHARS", 4),
		LogDir:             logDir,
	}

	slog.Info("config loaded",
		"http_address", cfg.HTTPAddress,
		"tts_provider", cfg.TTSProvider,
		"cycle_interval", cfg.CycleInterval,
		"sessions_db", cfg.SessionsDBPath)
	return cfg
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("invalid integer env value, using default", "name", name, "value", raw, "default", def)
		return def
	}
	return v
}

func envDuration(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		slog.Warn("invalid duration env value, using default", "name", name, "value", raw, "default", def)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
