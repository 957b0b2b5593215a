package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	DataDir             string `env:"DATA_DIR" envDefault:"./data"`
	KnowledgeDir        string `env:"KNOWLEDGE_DIR" envDefault:"./permanent_knowledge"`
	PermanentCollection string `env:"PERMANENT_COLLECTION" envDefault:"permanent_knowledge"`
	RegistryFile        string `env:"REGISTRY_FILE"`

	ChunkMaxTokens   int    `env:"CHUNK_MAX_TOKENS" envDefault:"800"`
	GlyphRulesFile   string `env:"GLYPH_RULES_FILE"`
	IndexConcurrency int    `env:"INDEX_CONCURRENCY" envDefault:"2"`

	EmbeddingsProvider string `env:"EMBEDDINGS_PROVIDER" envDefault:"ollama"`
	EmbeddingsModel    string `env:"EMBEDDINGS_MODEL" envDefault:"jeffh/intfloat-multilingual-e5-large:f16"`
	EmbeddingsURL      string `env:"EMBEDDINGS_URL" envDefault:"http://localhost:11434/api"`
	EmbeddingsAPIKey   string `env:"EMBEDDINGS_API_KEY"`
	EmbedBatchSize     int    `env:"EMBED_BATCH_SIZE" envDefault:"8"`
	RateLimitRPM       int    `env:"RATE_LIMIT_RPM" envDefault:"600"`

	LLMProvider    string  `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMURL         string  `env:"LLM_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel       string  `env:"LLM_MODEL" envDefault:"llama-3.3-70b-versatile"`
	LLMAPIKey      string  `env:"LLM_API_KEY"`
	Temperature    float64 `env:"LLM_TEMPERATURE" envDefault:"0.3"`
	MaxTokens      int     `env:"LLM_MAX_TOKENS" envDefault:"800"`
	MaxPromptChars int     `env:"MAX_PROMPT_CHARS" envDefault:"12000"`
	TopK           int     `env:"TOP_K" envDefault:"5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

func Init(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("CHUNK_MAX_TOKENS must be positive, got %d", c.ChunkMaxTokens)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("EMBED_BATCH_SIZE must be positive, got %d", c.EmbedBatchSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.IndexConcurrency <= 0 {
		c.IndexConcurrency = 1
	}
	switch c.EmbeddingsProvider {
	case "ollama", "openai", "gemini":
	default:
		return fmt.Errorf("unknown embeddings provider: %s", c.EmbeddingsProvider)
	}
	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	if c.PermanentCollection == "" {
		return fmt.Errorf("PERMANENT_COLLECTION must not be empty")
	}
	return nil
}
