package gamemaster

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gamemaster",
	Short: "Gamemaster - a Discord host for Two Rooms and a Boom",
	Long:  "Gamemaster runs live Two Rooms and a Boom sessions over Discord: it admits players from a lobby, assigns secret roles, and drives the timed game phases with interactive prompts.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.gamemaster/gamemaster.toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(doctorCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of Gamemaster",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gamemaster v%s\n", version)
	},
}
