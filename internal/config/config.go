package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "config/config.toml"

const DefaultExtractionPrompt = `You extract contact fields from business card OCR text.
Do not guess. If a field is not present, use null.
Return a single JSON object with exactly these keys:
full_name, first_name, last_name, company, title, email, phone, website, address.

OCR text:
%s`

const DefaultTranscriptionPrompt = `Transcribe every line of text printed on this business card.
Keep the original line order. Output plain text only, one line per line on the card.`

type ServerConfig struct {
	Port string `toml:"port"`
	Mode string `toml:"mode"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type OCRConfig struct {
	// Provider is one of mock, azure, gemini, openai, ollama.
	Provider     string `toml:"provider"`
	Endpoint     string `toml:"endpoint"`
	APIKey       string `toml:"api_key"`
	Model        string `toml:"model"`
	Language     string `toml:"language"`
	MaxDimension int    `toml:"max_dimension"`
}

type StoreConfig struct {
	// Driver is one of memory, postgres, memgraph.
	Driver       string `toml:"driver"`
	DSN          string `toml:"dsn"`
	SnapshotPath string `toml:"snapshot_path"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type ImagesConfig struct {
	Dir           string `toml:"dir"`
	PublicBaseURL string `toml:"public_base_url"`
	Bucket        string `toml:"bucket"`
	ServiceKey    string `toml:"service_key"`
	MaxUploadMB   int    `toml:"max_upload_mb"`
}

type SheetsConfig struct {
	SpreadsheetID   string `toml:"spreadsheet_id"`
	TabName         string `toml:"tab_name"`
	CredentialsJSON string `toml:"credentials_json"`
	CredentialsFile string `toml:"credentials_file"`
	SyncToken       string `toml:"sync_token"`
}

type ExtractionConfig struct {
	Prompt              string `toml:"prompt"`
	TranscriptionPrompt string `toml:"transcription_prompt"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	LLM        LLMConfig        `toml:"llm"`
	OCR        OCRConfig        `toml:"ocr"`
	Store      StoreConfig      `toml:"store"`
	Memgraph   MemgraphConfig   `toml:"memgraph"`
	Images     ImagesConfig     `toml:"images"`
	Sheets     SheetsConfig     `toml:"sheets"`
	Extraction ExtractionConfig `toml:"extraction"`
	Logging    LoggingConfig    `toml:"logging"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault reads CONFIG_PATH (or DefaultPath). A missing file yields an
// empty config; a malformed one is an error. Env overrides and defaults are
// applied in both cases.
func LoadOrDefault() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	override(&c.Server.Port, "PORT")
	override(&c.Server.Mode, "GIN_MODE")

	override(&c.LLM.Provider, "LLM_PROVIDER")
	override(&c.LLM.Model, "LLM_MODEL")
	override(&c.LLM.APIKey, "LLM_API_KEY")
	override(&c.LLM.BaseURL, "LLM_BASE_URL")

	override(&c.OCR.Provider, "OCR_PROVIDER")
	override(&c.OCR.Endpoint, "OCR_ENDPOINT")
	override(&c.OCR.APIKey, "OCR_API_KEY")
	override(&c.OCR.Model, "OCR_MODEL")

	override(&c.Store.Driver, "STORE_DRIVER")
	override(&c.Store.DSN, "DATABASE_URL")
	override(&c.Store.SnapshotPath, "STORE_SNAPSHOT_PATH")

	override(&c.Memgraph.URI, "MEMGRAPH_URI")
	override(&c.Memgraph.User, "MEMGRAPH_USER")
	override(&c.Memgraph.Password, "MEMGRAPH_PASSWORD")

	override(&c.Images.Dir, "IMAGES_DIR")
	override(&c.Images.PublicBaseURL, "IMAGES_PUBLIC_BASE_URL")
	override(&c.Images.Bucket, "IMAGES_BUCKET")
	override(&c.Images.ServiceKey, "SUPABASE_SERVICE_ROLE_KEY")

	override(&c.Sheets.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	override(&c.Sheets.TabName, "GOOGLE_SHEETS_TAB_NAME")
	override(&c.Sheets.CredentialsJSON, "GOOGLE_SHEETS_CREDENTIALS_JSON")
	override(&c.Sheets.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	override(&c.Sheets.SyncToken, "SHEETS_SYNC_TOKEN")

	override(&c.Logging.Level, "LOG_LEVEL")
}

func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.OCR.Provider == "" {
		c.OCR.Provider = "mock"
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "en"
	}
	if c.OCR.MaxDimension == 0 {
		c.OCR.MaxDimension = 2000
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Memgraph.URI == "" {
		c.Memgraph.URI = "bolt://localhost:7687"
	}
	if c.Images.Dir == "" {
		c.Images.Dir = "data/cards"
	}
	if c.Images.Bucket == "" {
		c.Images.Bucket = "card-images"
	}
	if c.Images.MaxUploadMB == 0 {
		c.Images.MaxUploadMB = 10
	}
	if c.Sheets.TabName == "" {
		c.Sheets.TabName = "Leads"
	}
	if c.Extraction.Prompt == "" {
		c.Extraction.Prompt = DefaultExtractionPrompt
	}
	if c.Extraction.TranscriptionPrompt == "" {
		c.Extraction.TranscriptionPrompt = DefaultTranscriptionPrompt
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// OCRVision returns the LLM settings used by vision OCR providers. Blank OCR
// credentials fall back to the [llm] section.
func (c *Config) OCRVision() LLMConfig {
	out := LLMConfig{
		Provider: c.OCR.Provider,
		Model:    c.OCR.Model,
		APIKey:   c.OCR.APIKey,
		BaseURL:  c.OCR.Endpoint,
	}
	if out.APIKey == "" {
		out.APIKey = c.LLM.APIKey
	}
	if out.Model == "" && c.LLM.Provider == c.OCR.Provider {
		out.Model = c.LLM.Model
	}
	if out.BaseURL == "" && c.LLM.Provider == c.OCR.Provider {
		out.BaseURL = c.LLM.BaseURL
	}
	return out
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
