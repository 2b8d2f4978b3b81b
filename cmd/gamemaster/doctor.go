package gamemaster

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/knyzorg/discord-game-manager/pkg/config"
	"github.com/knyzorg/discord-game-manager/pkg/history"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local setup",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	failed := false
	check := func(name string, err error) {
		if err != nil {
			failed = true
			fmt.Printf("  [FAIL] %s: %v\n", name, err)
			return
		}
		fmt.Printf("  [ ok ] %s\n", name)
	}

	fmt.Println("gamemaster doctor")

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	check("config "+path, err)
	if err != nil {
		return fmt.Errorf("cannot continue without config")
	}

	check("data directory", config.EnsureDataDir())

	if os.Getenv(cfg.Discord.TokenEnv) == "" {
		check("discord token", fmt.Errorf("env %s is empty", cfg.Discord.TokenEnv))
	} else {
		check("discord token", nil)
	}

	if cfg.History.Enabled {
		rec, err := history.Open(cfg.History.DSN, nil)
		check("history database "+cfg.History.DSN, err)
		if err == nil {
			rec.Close()
		}
	}

	if failed {
		return fmt.Errorf("doctor found problems")
	}
	fmt.Println("all checks passed")
	return nil
}
