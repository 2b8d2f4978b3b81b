package main

import (
	"os"

	"github.com/knyzorg/discord-game-manager/cmd/gamemaster"
)

func main() {
	if err := gamemaster.Execute(); err != nil {
		os.Exit(1)
	}
}
