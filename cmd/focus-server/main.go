package main

import (
	"flag"
	"log"

	"github.com/gin-gonic/gin"

	guidefocus "github.com/menta2k/guide-focus"
	"github.com/menta2k/guide-focus/internal/config"
	"github.com/menta2k/guide-focus/internal/server"
	"github.com/menta2k/guide-focus/internal/utils"
)

func main() {
	var configPath, port string
	flag.StringVar(&configPath, "config", "", "config file (default ~/.config/guide-focus/config.json when present)")
	flag.StringVar(&port, "port", "", "listen address, overrides config and environment")
	flag.Parse()

	if configPath == "" && utils.FileExists(config.GetConfigPath()) {
		configPath = config.GetConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if port != "" {
		cfg.Server.Port = port
		if err := cfg.Validate(); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	gin.SetMode(cfg.Server.Mode)

	pipeline, err := guidefocus.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	router := server.SetupRouter(server.NewHandler(pipeline, cfg))

	log.Printf("guide-focus %s listening on %s (detector=%s)", guidefocus.Version, cfg.Server.Port, cfg.Detector.Backend)
	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
