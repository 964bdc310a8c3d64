package cli

import (
	"fmt"

	"github.com/joho/godotenv"

	"devprobe/internal/paths"
)

// loadDotEnv reads .env files from the working directory and the devprobe
// home. Variables already set in the environment win, and a .env in the
// working directory is read first so it can point DEVPROBE_HOME elsewhere.
func loadDotEnv() error {
	if err := loadEnvFile(".env"); err != nil {
		return err
	}
	pp, err := paths.Resolve()
	if err != nil {
		return nil
	}
	return loadEnvFile(pp.EnvFile)
}

func loadEnvFile(path string) error {
	exists, err := paths.FileExists(path)
	if err != nil || !exists {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
