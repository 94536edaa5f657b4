package main

import (
	"flag"
	"log"

	approuters "github.com/fatmadali94/rierco-laboratories-sub001/internal/app_routers"
	"github.com/fatmadali94/rierco-laboratories-sub001/internal/configuration"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to the JSON config file")
	flag.Parse()

	container, err := configuration.BuildContainer(*configPath)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	// Setup routers
	approuters.StartServer(container)
}
