package config

import (
	"os"
	"testing"
	"time"
)

func TestPhotoURL_EmptyDomain(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "",
	}

	result := cfg.PhotoURL("photo123")

	if result != "" {
		t.Errorf("expected empty string for empty domain, got '%s'", result)
	}
}

func TestPhotoURL_WithDomain(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "https://photos.example.com",
	}

	result := cfg.PhotoURL("photo123")

	// Should contain the UID
	if result == "" {
		t.Error("expected non-empty result")
	}

	// Should contain OSC 8 escape sequences
	if result[0] != 0x1b {
		t.Error("expected result to start with escape sequence")
	}

	// Should contain the URL
	expectedURL := "https://photos.example.com/library/browse?view=cards&order=oldest&q=uid:photo123"
	if len(result) < len(expectedURL) {
		t.Errorf("result too short, expected to contain URL")
	}
}

func TestPhotoURL_ContainsUID(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "https://photos.example.com",
	}

	uid := "pt8abc123xyz"
	result := cfg.PhotoURL(uid)

	// The visible text should be just the UID
	// OSC 8 format: \e]8;;URL\e\\TEXT\e]8;;\e\\
	// So the UID should appear between the two escape sequences
	found := false
	for i := range len(result) - len(uid) {
		if result[i:i+len(uid)] == uid {
			found = true
			break
		}
	}

	if !found {
		t.Errorf("expected result to contain UID '%s'", uid)
	}
}

func TestPhotoURL_CorrectFormat(t *testing.T) {
	cfg := PhotoPrismConfig{
		Domain: "https://photos.example.com",
	}

	result := cfg.PhotoURL("test123")

	// Verify OSC 8 start sequence exists: \x1b]8;;
	startSeq := "\x1b]8;;"
	if len(result) < len(startSeq) || result[:len(startSeq)] != startSeq {
		t.Error("expected result to start with OSC 8 sequence '\\x1b]8;;'")
	}

	// Verify end sequence exists: \x1b]8;;\x1b\\
	endSeq := "\x1b]8;;\x1b\\"
	if len(result) < len(endSeq) || result[len(result)-len(endSeq):] != endSeq {
		t.Error("expected result to end with OSC 8 close sequence")
	}
}

func TestLoad_DefaultEmbeddingDim(t *testing.T) {
	// Clear any existing EMBEDDING_DIM
	os.Unsetenv("EMBEDDING_DIM")

	cfg := Load()

	if cfg.Embedding.Dim != 768 {
		t.Errorf("expected default embedding dim 768, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_CustomEmbeddingDim(t *testing.T) {
	// Set custom embedding dimension
	t.Setenv("EMBEDDING_DIM", "512")

	cfg := Load()

	if cfg.Embedding.Dim != 512 {
		t.Errorf("expected embedding dim 512, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_InvalidEmbeddingDim(t *testing.T) {
	// Set invalid embedding dimension (non-numeric)
	t.Setenv("EMBEDDING_DIM", "invalid")

	cfg := Load()

	// Should fall back to default
	if cfg.Embedding.Dim != 768 {
		t.Errorf("expected default embedding dim 768 for invalid input, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_NegativeEmbeddingDim(t *testing.T) {
	// Set negative embedding dimension
	t.Setenv("EMBEDDING_DIM", "-100")

	cfg := Load()

	// Should fall back to default (negative is invalid)
	if cfg.Embedding.Dim != 768 {
		t.Errorf("expected default embedding dim 768 for negative input, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_ZeroEmbeddingDim(t *testing.T) {
	// Set zero embedding dimension
	t.Setenv("EMBEDDING_DIM", "0")

	cfg := Load()

	// Should fall back to default (zero is invalid)
	if cfg.Embedding.Dim != 768 {
		t.Errorf("expected default embedding dim 768 for zero input, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_PhotoPrismConfig(t *testing.T) {
	t.Setenv("PHOTOPRISM_URL", "https://photos.test.com")
	t.Setenv("PHOTOPRISM_USERNAME", "testuser")
	t.Setenv("PHOTOPRISM_PASSWORD", "testpass")
	t.Setenv("PHOTOPRISM_DOMAIN", "https://public.photos.com")

	cfg := Load()

	if cfg.PhotoPrism.URL != "https://photos.test.com" {
		t.Errorf("expected URL 'https://photos.test.com', got '%s'", cfg.PhotoPrism.URL)
	}

	if cfg.PhotoPrism.Username != "testuser" {
		t.Errorf("expected username 'testuser', got '%s'", cfg.PhotoPrism.Username)
	}

	if cfg.PhotoPrism.GetPassword() != "testpass" {
		t.Errorf("expected password 'testpass', got '%s'", cfg.PhotoPrism.GetPassword())
	}

	if cfg.PhotoPrism.Domain != "https://public.photos.com" {
		t.Errorf("expected domain 'https://public.photos.com', got '%s'", cfg.PhotoPrism.Domain)
	}
}

func TestLoad_OpenAIConfig(t *testing.T) {
	t.Setenv("OPENAI_TOKEN", "sk-test-token-123")

	cfg := Load()

	if cfg.OpenAI.Token != "sk-test-token-123" {
		t.Errorf("expected OpenAI token 'sk-test-token-123', got '%s'", cfg.OpenAI.Token)
	}
}

func TestLoad_GeminiConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-api-key-456")

	cfg := Load()

	if cfg.Gemini.GetAPIKey() != "gemini-api-key-456" {
		t.Errorf("expected Gemini API key 'gemini-api-key-456', got '%s'", cfg.Gemini.GetAPIKey())
	}
}

func TestLoad_EmbeddingConfig(t *testing.T) {
	t.Setenv("EMBEDDING_URL", "http://localhost:8000")
	t.Setenv("EMBEDDING_DIM", "1024")

	cfg := Load()

	if cfg.Embedding.URL != "http://localhost:8000" {
		t.Errorf("expected Embedding URL 'http://localhost:8000', got '%s'", cfg.Embedding.URL)
	}

	if cfg.Embedding.Dim != 1024 {
		t.Errorf("expected Embedding dim 1024, got %d", cfg.Embedding.Dim)
	}
}

func TestLoad_EmptyEnvVars(t *testing.T) {
	// Clear all relevant env vars
	os.Unsetenv("PHOTOPRISM_URL")
	os.Unsetenv("PHOTOPRISM_USERNAME")
	os.Unsetenv("OPENAI_TOKEN")
	os.Unsetenv("GEMINI_API_KEY")

	cfg := Load()

	// Should not panic, should return empty strings
	if cfg.PhotoPrism.URL != "" {
		t.Errorf("expected empty PhotoPrism URL, got '%s'", cfg.PhotoPrism.URL)
	}

	if cfg.OpenAI.Token != "" {
		t.Errorf("expected empty OpenAI token, got '%s'", cfg.OpenAI.Token)
	}
}

func TestDefaultCuration(t *testing.T) {
	cur := DefaultCuration()

	if cur.Clustering.Window != 30*time.Second {
		t.Errorf("expected 30s window, got %v", cur.Clustering.Window)
	}
	if cur.Clustering.SimilarityThreshold != 0.50 {
		t.Errorf("expected similarity threshold 0.50, got %v", cur.Clustering.SimilarityThreshold)
	}
	if cur.Scoring.Weights.SingleFace.Faces != 0.4 {
		t.Errorf("expected single face weight 0.4, got %v", cur.Scoring.Weights.SingleFace.Faces)
	}
	if cur.Curator.Staleness != 168*time.Hour {
		t.Errorf("expected 168h staleness, got %v", cur.Curator.Staleness)
	}
	if cur.Composer.AngleTolerance.Yaw != 20 {
		t.Errorf("expected yaw tolerance 20, got %v", cur.Composer.AngleTolerance.Yaw)
	}
	if cur.Composer.AnalysisDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms analysis delay, got %v", cur.Composer.AnalysisDelay)
	}
	sum := cur.Recommend.Quota.NoFaces + cur.Recommend.Quota.SingleFace + cur.Recommend.Quota.Group
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected quotas to sum to 1, got %v", sum)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CURATION_WINDOW", "45s")
	t.Setenv("CURATION_SIMILARITY_THRESHOLD", "0.7")
	t.Setenv("COMPOSER_TIMEOUT", "5s")
	t.Setenv("WEB_PORT", "9000")

	cfg := Load()

	if cfg.Curation.Clustering.Window != 45*time.Second {
		t.Errorf("expected 45s window, got %v", cfg.Curation.Clustering.Window)
	}
	if cfg.Curation.Clustering.SimilarityThreshold != 0.7 {
		t.Errorf("expected 0.7, got %v", cfg.Curation.Clustering.SimilarityThreshold)
	}
	if cfg.Curation.Composer.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Curation.Composer.Timeout)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Web.Port)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("CURATION_WINDOW", "soon")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "-3")
	t.Setenv("COMPOSER_QUALITY_WARNING", "abc")

	cfg := Load()

	if cfg.Curation.Clustering.Window != 30*time.Second {
		t.Errorf("expected default window, got %v", cfg.Curation.Clustering.Window)
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("expected default 25, got %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Curation.Composer.QualityWarning != 0.6 {
		t.Errorf("expected default 0.6, got %v", cfg.Curation.Composer.QualityWarning)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("ANALYSIS_PROVIDER")

	cfg := Load()

	if cfg.Database.SQLitePath != "photo-moments.db" {
		t.Errorf("expected default sqlite path, got %q", cfg.Database.SQLitePath)
	}
	if cfg.Analysis.Provider != "sidecar" {
		t.Errorf("expected sidecar provider, got %q", cfg.Analysis.Provider)
	}
}

func TestGetPassword_FromFile(t *testing.T) {
	path := t.TempDir() + "/pp-password"
	if err := os.WriteFile(path, []byte("s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := PhotoPrismConfig{PasswordFile: path}
	if got := cfg.GetPassword(); got != "s3cret" {
		t.Errorf("expected password from file, got %q", got)
	}

	cfg.Password = "plain"
	if got := cfg.GetPassword(); got != "plain" {
		t.Errorf("expected plain password to win, got %q", got)
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("WEB_ALLOWED_ORIGINS", " https://photos.example.com, ,http://nas.local:8085 ")

	cfg := Load()

	want := []string{"https://photos.example.com", "http://nas.local:8085"}
	if len(cfg.Web.AllowedOrigins) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Web.AllowedOrigins)
	}
	for i := range want {
		if cfg.Web.AllowedOrigins[i] != want[i] {
			t.Errorf("origin %d: expected %q, got %q", i, want[i], cfg.Web.AllowedOrigins[i])
		}
	}
}
