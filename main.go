package main

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vdo-project/vdomgr/cmd/cli"
	_ "github.com/vdo-project/vdomgr/pkg/logger"
)

func main() {
	start := time.Now()
	log.Trace().Msgf("Top of execution - %s", start.UTC())
	cli.Execute()
	log.Trace().Msgf("Execution finished - %s", time.Since(start))
}
