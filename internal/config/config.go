package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed curation.yaml
var curationYAML []byte

type Config struct {
	PhotoPrism PhotoPrismConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Embedding  EmbeddingConfig
	Database   DatabaseConfig
	Analysis   AnalysisConfig
	Web        WebConfig
	Log        LogConfig
	Curation   CurationConfig
}

type PhotoPrismConfig struct {
	URL      string
	Username string
	Password string
	// PasswordFile points to a file holding the password (docker secrets)
	PasswordFile string
	Domain       string // public domain for generating photo links (e.g., https://photos.example.com)
}

// PhotoURL returns an OSC 8 hyperlink for terminal emulators (iTerm2, etc.)
// Displays the UID but makes it clickable to open the photo in PhotoPrism
// Returns empty string if Domain is not set
func (c *PhotoPrismConfig) PhotoURL(uid string) string {
	if c.Domain == "" {
		return ""
	}
	url := c.Domain + "/library/browse?view=cards&order=oldest&q=uid:" + uid
	// OSC 8 hyperlink format: \e]8;;URL\e\\TEXT\e]8;;\e\\
	return "\x1b]8;;" + url + "\x1b\\" + uid + "\x1b]8;;\x1b\\"
}

// GetPassword returns the password, reading PHOTOPRISM_PASSWORD_FILE when the plain variable is unset.
func (c *PhotoPrismConfig) GetPassword() string {
	if c.Password != "" {
		return c.Password
	}
	return readSecretFile(c.PasswordFile)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey     string
	APIKeyFile string
}

func (c *GeminiConfig) GetAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return readSecretFile(c.APIKeyFile)
}

func readSecretFile(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

type EmbeddingConfig struct {
	URL string // embedding server, empty disables embedding similarity
	Dim int    // defaults to 768
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, empty selects SQLite
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
	SQLitePath   string // defaults to photo-moments.db
}

type AnalysisConfig struct {
	Provider    string // openai, gemini or sidecar
	Concurrency int    // parallel photo analyses during discovery
	Similarity  string // hash or embedding
}

type WebConfig struct {
	Host string
	Port int
	// AllowedOrigins are extra CORS origins besides localhost
	AllowedOrigins []string
}

type LogConfig struct {
	Mode string // dev or prod
}

// CurationConfig mirrors curation.yaml.
type CurationConfig struct {
	Clustering ClusteringConfig `yaml:"clustering"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Curator    CuratorConfig    `yaml:"curator"`
	Faces      FacesConfig      `yaml:"faces"`
	Composer   ComposerConfig   `yaml:"composer"`
	Recommend  RecommendConfig  `yaml:"recommend"`
}

type ClusteringConfig struct {
	Window              time.Duration `yaml:"window"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
}

type WeightConfig struct {
	Technical float64 `yaml:"technical"`
	Faces     float64 `yaml:"faces"`
	Context   float64 `yaml:"context"`
}

type ScoringConfig struct {
	Neutral         float64 `yaml:"neutral"`
	GoldenHourBonus float64 `yaml:"golden_hour_bonus"`
	Weights         struct {
		NoFaces    WeightConfig `yaml:"no_faces"`
		SingleFace WeightConfig `yaml:"single_face"`
		SmallGroup WeightConfig `yaml:"small_group"`
		LargeGroup WeightConfig `yaml:"large_group"`
	} `yaml:"weights"`
}

type CuratorConfig struct {
	DominanceThreshold  float64       `yaml:"dominance_threshold"`
	QualityFloor        float64       `yaml:"quality_floor"`
	ConfidenceScale     float64       `yaml:"confidence_scale"`
	ImportantMomentSize int           `yaml:"important_moment_size"`
	Staleness           time.Duration `yaml:"staleness"`
}

type FacesConfig struct {
	ReplaceThreshold float64 `yaml:"replace_threshold"`
}

type AngleToleranceConfig struct {
	Pitch float64 `yaml:"pitch"`
	Yaw   float64 `yaml:"yaw"`
	Roll  float64 `yaml:"roll"`
}

type ComposerConfig struct {
	MinBaseQuality  float64              `yaml:"min_base_quality"`
	QualityWarning  float64              `yaml:"quality_warning"`
	Timeout         time.Duration        `yaml:"timeout"`
	AnalysisDelay   time.Duration        `yaml:"analysis_delay"`
	BreakerFailures int                  `yaml:"breaker_failures"`
	AngleTolerance  AngleToleranceConfig `yaml:"angle_tolerance"`
}

type RecommendConfig struct {
	Quota struct {
		NoFaces    float64 `yaml:"no_faces"`
		SingleFace float64 `yaml:"single_face"`
		Group      float64 `yaml:"group"`
	} `yaml:"quota"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a non-negative float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive time.Duration ("30s", "250ms").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// DefaultCuration returns the embedded curation thresholds without environment overrides.
func DefaultCuration() CurationConfig {
	var cur CurationConfig
	if err := yaml.Unmarshal(curationYAML, &cur); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded curation.yaml: " + err.Error())
	}
	return cur
}

func Load() *Config {
	cur := DefaultCuration()
	cur.Clustering.Window = envDuration("CURATION_WINDOW", cur.Clustering.Window)
	cur.Clustering.SimilarityThreshold = envFloat("CURATION_SIMILARITY_THRESHOLD", cur.Clustering.SimilarityThreshold)
	cur.Scoring.GoldenHourBonus = envFloat("CURATION_GOLDEN_HOUR_BONUS", cur.Scoring.GoldenHourBonus)
	cur.Curator.Staleness = envDuration("CURATION_STALENESS", cur.Curator.Staleness)
	cur.Faces.ReplaceThreshold = envFloat("FACES_REPLACE_THRESHOLD", cur.Faces.ReplaceThreshold)
	cur.Composer.QualityWarning = envFloat("COMPOSER_QUALITY_WARNING", cur.Composer.QualityWarning)
	cur.Composer.Timeout = envDuration("COMPOSER_TIMEOUT", cur.Composer.Timeout)
	cur.Composer.AnalysisDelay = envDuration("COMPOSER_ANALYSIS_DELAY", cur.Composer.AnalysisDelay)

	return &Config{
		PhotoPrism: PhotoPrismConfig{
			URL:          os.Getenv("PHOTOPRISM_URL"),
			Username:     os.Getenv("PHOTOPRISM_USERNAME"),
			Password:     os.Getenv("PHOTOPRISM_PASSWORD"),
			PasswordFile: os.Getenv("PHOTOPRISM_PASSWORD_FILE"),
			Domain:       os.Getenv("PHOTOPRISM_DOMAIN"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey:     os.Getenv("GEMINI_API_KEY"),
			APIKeyFile: os.Getenv("GEMINI_API_KEY_FILE"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 768),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			SQLitePath:   envString("SQLITE_PATH", "photo-moments.db"),
		},
		Analysis: AnalysisConfig{
			Provider:    envString("ANALYSIS_PROVIDER", "sidecar"),
			Concurrency: envInt("ANALYSIS_CONCURRENCY", 5),
			Similarity:  envString("SIMILARITY", "hash"),
		},
		Web: WebConfig{
			Host: envString("WEB_HOST", "127.0.0.1"),
			Port: envInt("WEB_PORT", 8085),

			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Mode: envString("LOG_MODE", "dev"),
		},
		Curation: cur,
	}
}
