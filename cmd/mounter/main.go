package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/runlayer/sidemount/pkg/mounter"
)

func main() {
	m, err := mounter.NewMounter()
	if err != nil {
		log.Error().Err(err).Msg("mounter initialization failed")
		os.Exit(1)
	}

	if err := m.Run(); err != nil {
		log.Error().Err(err).Msg("mounter exited with error")
		os.Exit(1)
	}

	log.Info().Msg("mounter stopped")
}
