// Command rentbot runs the rent collection bot.
package main

import (
	"log"
	"os"

	corecmd "github.com/m3rciful/rentbot/core/cmd"
	"github.com/m3rciful/rentbot/core/buildinfo"
	"github.com/m3rciful/rentbot/internal/app"
)

func main() {
	log.Printf("rentbot %s", buildinfo.String())
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		EnvFiles:          []string{".env"},
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Printf("rentbot: %v", err)
		os.Exit(1)
	}
}
