package main

import (
	"os"

	"github.com/ignatzorin/taskfi-backend/cmd/escrowctl/commands"
	"github.com/ignatzorin/taskfi-backend/internal/logger"
)

func main() {
	if err := commands.Execute(); err != nil {
		logger.Log.Error(err)
		os.Exit(1)
	}
}
