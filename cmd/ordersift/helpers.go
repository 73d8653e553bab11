package main

import (
	"fmt"
	"os"

	"github.com/ordersift/ordersift/internal/config"
	"github.com/ordersift/ordersift/internal/llm"
	"github.com/ordersift/ordersift/internal/service"
	"github.com/ordersift/ordersift/internal/storage"
	"github.com/ordersift/ordersift/internal/transcript"
	"github.com/spf13/viper"
)

func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))

	db, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func createEncoder() (service.Encoder, error) {
	cfg := llm.Config{
		Provider: viper.GetString("embedding.provider"),
		Model:    viper.GetString("embedding.model"),
		APIKey:   resolveAPIKey("embedding"),
	}

	encoder, err := llm.NewEncoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding encoder: %w", err)
	}
	return encoder, nil
}

func createDisambiguator() (service.Disambiguator, error) {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		Model:       viper.GetString("llm.model"),
		APIKey:      resolveAPIKey("llm"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
	}

	disambiguator, err := llm.NewDisambiguator(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create disambiguator: %w", err)
	}
	return disambiguator, nil
}

// resolveAPIKey prefers an explicit config key and falls back to the
// provider's conventional environment variable.
func resolveAPIKey(section string) string {
	if key := viper.GetString(section + ".api_key"); key != "" {
		return key
	}

	switch viper.GetString(section + ".provider") {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

func loadVocabulary() (transcript.Vocabulary, error) {
	path := viper.GetString("matching.vocabulary")
	if path == "" {
		return transcript.DefaultVocabulary(), nil
	}

	vocab, err := transcript.LoadVocabulary(config.ExpandPath(path))
	if err != nil {
		return transcript.Vocabulary{}, fmt.Errorf("failed to load vocabulary overrides: %w", err)
	}
	return vocab, nil
}
