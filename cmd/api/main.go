package main

import (
	"flag"
	"os"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/logger"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/server"
)

// @title CEEJA Enrollment Verification API
// @version 1.0
// @description Reconciles submitted enrollments into student records and serves them to reviewers
// @BasePath /api/v1
// @schemes http https

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default configs/config.yaml)")
	flag.Parse()

	srv, err := server.NewServer(*configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
