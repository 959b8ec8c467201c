package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Temikus/esque/internal/application"
	"github.com/Temikus/esque/internal/infrastructure/kafka"
	"github.com/Temikus/esque/internal/infrastructure/repository"
	"github.com/Temikus/esque/internal/utils"
	"github.com/joho/godotenv"
)

func findConfigPath() string {
	if p := os.Getenv("ESQUE_CONFIG"); p != "" {
		return p
	}

	names := []string{"esque.yml", "esque.yaml"}
	candidates := make([]string, 0, 6)
	for _, n := range names {
		candidates = append(candidates, "./"+n)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		for _, n := range names {
			candidates = append(candidates, filepath.Join(xdg, "esque", n))
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, n := range names {
			candidates = append(candidates, filepath.Join(home, ".config", "esque", n))
		}
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return candidates[0]
}

func main() {
	_ = godotenv.Load()
	utils.InitLogger()

	repo := repository.NewContextRepository(findConfigPath(), kafka.NewFactory())
	if err := repo.LoadFromFile(); err != nil {
		utils.Logger.Fatal("failed to load config", "err", err)
	}
	defer repo.Close()

	if err := repo.Watch(); err != nil {
		utils.Logger.Warn("config hot reload unavailable", "err", err)
	}

	cfg, ok := repo.CurrentContext()
	if !ok {
		utils.Logger.Fatal("no current context selected in config")
	}
	client, ok := repo.GetClient(cfg.Name)
	if !ok {
		utils.Logger.Fatal("no client for current context", "context", cfg.Name)
	}

	controller := application.NewTopicController(client, cfg)

	opts := application.DefaultListOptions()
	opts.FetchObjects = false
	topics, err := controller.ListTopics(context.Background(), opts)
	if err != nil {
		utils.Logger.Fatal("failed to list topics", "context", cfg.Name, "err", err)
	}
	utils.Logger.Info("connected", "context", cfg.Name, "topics", len(topics))
	for _, t := range topics {
		utils.Logger.Info("topic", "name", t.Name)
	}
}
