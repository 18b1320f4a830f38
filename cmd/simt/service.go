package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/wasumayan/SorryIMissedThis-sub001/garden"
	"github.com/wasumayan/SorryIMissedThis-sub001/identity"
	"github.com/wasumayan/SorryIMissedThis-sub001/naming"
	"github.com/wasumayan/SorryIMissedThis-sub001/providers/imsgbridge"
	"github.com/wasumayan/SorryIMissedThis-sub001/providers/openai"
)

// serviceFromViper wires the full stack: bridge client, identity
// resolver, naming pipeline (inference only when an API key is
// configured), directory cache, file store.
func serviceFromViper(logger *slog.Logger) (*garden.Service, *imsgbridge.Client, error) {
	bridge := imsgbridge.New(viper.GetString("platform.bridge_url"), logger)

	resolver := identity.NewResolver(bridge, identity.ResolverOptions{
		EnumerationTTL:   viper.GetDuration("platform.enumeration_ttl"),
		EnumerationLimit: viper.GetInt("platform.enumeration_limit"),
		Logger:           logger,
	})

	var inferrer naming.Inferrer
	if apiKey := strings.TrimSpace(viper.GetString("llm.api_key")); apiKey != "" {
		client := openai.New(strings.TrimSpace(viper.GetString("llm.endpoint")), apiKey)
		inferrer = naming.NewLLMInferrer(client, strings.TrimSpace(viper.GetString("llm.model")))
	}

	directory := naming.NewCachedDirectory(bridge, naming.CachedDirectoryOptions{
		TTL:    viper.GetDuration("directory.cache_ttl"),
		Logger: logger,
	})

	svc, err := garden.NewService(garden.ServiceDeps{
		Client:    bridge,
		Resolver:  resolver,
		Pipeline:  naming.NewPipeline(inferrer, logger),
		Directory: directory,
		Store:     garden.NewFileStore(gardenDir()),
	}, garden.ServiceOptions{
		Workers:     viper.GetInt("sync.workers"),
		FetchLimit:  viper.GetInt("sync.fetch_limit"),
		CallTimeout: viper.GetDuration("sync.call_timeout"),
		WindowDays:  viper.GetInt("health.window_days"),
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return svc, bridge, nil
}

func gardenDir() string {
	return filepath.Join(
		expandHomePath(viper.GetString("file_state_dir")),
		viper.GetString("garden.dir_name"),
	)
}

func expandHomePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil && home != "" {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
