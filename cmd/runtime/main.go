package main

import (
	"os"

	"rgehrsitz/acrex/internal/cli"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("acrex failed")
		os.Exit(1)
	}
}
