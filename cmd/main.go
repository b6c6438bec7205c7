package main

import (
	"log"

	"github.com/estatemarket/auction-service/internal/app"
	"github.com/estatemarket/auction-service/internal/config"
)

func main() {
	cfg := config.MustLoad()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	application.Run()
}
