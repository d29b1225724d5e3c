package main

import (
	"os"

	lorecmder "github.com/lorebookhq/lorebook/cmd/lore"
)

func main() {
	cmd := lorecmder.NewLoreCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
