package main

import (
	"time"

	"github.com/spf13/viper"
	"github.com/wasumayan/SorryIMissedThis-sub001/garden"
)

func initViperDefaults() {
	// Platform bridge
	viper.SetDefault("platform.bridge_url", "http://127.0.0.1:1234")
	viper.SetDefault("platform.enumeration_limit", 500)
	viper.SetDefault("platform.enumeration_ttl", 30*time.Second)

	// LLM inference (optional; naming falls back when unset)
	viper.SetDefault("llm.endpoint", "https://api.openai.com")
	viper.SetDefault("llm.model", "gpt-5.2")
	viper.SetDefault("llm.api_key", "")

	// Sync orchestration
	viper.SetDefault("sync.workers", garden.DefaultWorkers)
	viper.SetDefault("sync.fetch_limit", garden.DefaultFetchLimit)
	viper.SetDefault("sync.call_timeout", garden.DefaultCallTimeout)
	viper.SetDefault("sync.mode", "all")
	viper.SetDefault("sync.recent_n", 20)

	// Metrics
	viper.SetDefault("health.window_days", 10)

	// Global
	viper.SetDefault("file_state_dir", "~/.simt")
	viper.SetDefault("garden.dir_name", "garden")
	viper.SetDefault("directory.cache_ttl", 10*time.Minute)
}
