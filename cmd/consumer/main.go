package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/runlayer/sidemount/pkg/consumer"
)

func main() {
	c, err := consumer.NewConsumer()
	if err != nil {
		log.Error().Err(err).Msg("consumer initialization failed")
		os.Exit(1)
	}

	if err := c.Run(); err != nil {
		log.Error().Err(err).Msg("consumer exited with error")
		os.Exit(1)
	}

	log.Info().Msg("consumer stopped")
}
