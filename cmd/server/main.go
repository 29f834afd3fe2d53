package main

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"azfootball/internal/config"
	"azfootball/internal/game"
	"azfootball/internal/httpapi"
	"azfootball/internal/players"
	"azfootball/internal/ws"
)

func main() {
	_ = godotenv.Load()
	cfg := &config.Config{}
	cobra.CheckErr(config.NewCmd(cfg, run).Execute())
}

func run(cfg *config.Config) error {
	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Reference dataset. A load failure is degraded mode, not fatal: rooms
	// still run, validation just skips entity recognition.
	store, err := players.Load(cfg.DataFile)
	if err != nil {
		zerologlog.Warn().Err(err).Str("file", cfg.DataFile).
			Msg("reference dataset unavailable, running in degraded validation mode")
		store = nil
	}

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).Msg("http")
	})

	roomCfg := game.RoomConfig{
		RoundSeconds:    cfg.RoundSeconds,
		TickInterval:    time.Second,
		InterRoundDelay: cfg.InterRoundDelay,
		MinPlayers:      cfg.MinPlayers,
	}
	if cfg.ExportEnabled {
		roomCfg.ExportFile = cfg.ExportFile
	}

	// Gateway and registry reference each other: the registry broadcasts
	// through the gateway, the gateway dispatches into the registry.
	sock := ws.New(cfg.DefaultMode)
	var source game.MatcherSource
	if store != nil {
		source = store
	}
	reg := game.NewRegistry(roomCfg, source, sock, cfg.IdleRoomTimeout, cfg.SweepInterval)
	sock.SetRegistry(reg)

	io := sock.Mount(r)
	defer io.Close()
	reg.StartSweeper()
	defer reg.Close()

	httpapi.Register(r, store)

	zerologlog.Info().Str("addr", cfg.Addr()).Msg("listening")
	return r.Run(cfg.Addr())
}
