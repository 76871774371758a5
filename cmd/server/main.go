package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"hitline/internal/catalog"
	"hitline/internal/config"
	"hitline/internal/fuzzymatch"
	"hitline/internal/game"
	"hitline/internal/metrics"
	"hitline/internal/session"
	"hitline/internal/storage"
	"hitline/internal/ws"
)

const version = "v1.0.0-dev"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`Hitline - real-time music timeline guessing game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                    Port to listen on (default: 8080)
  DATABASE_URL            Postgres DSN for the game archive (optional)
  SESSION_SECRET          Secret for signed player session tokens
  SESSION_TTL_HOURS       Session token lifetime (default: 24)
  CONTEST_WINDOW_SECONDS  Contest window length (default: 15)
  CONTEST_GRACE_SECONDS   Late-submission skew allowance (default: 2)
  WIN_THRESHOLD           Timeline length that wins the game (default: 10)
  TURNS_PER_PLAYER        Default turns per player (default: 5)
  CLIP_DURATION_SECONDS   Default clip length (default: 15)
  MAX_PLAYERS             Default room capacity (default: 10)
  METRICS_ENABLED         Expose /metrics (default: true)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("Hitline %s\n", version)
		return
	}

	// Determine port
	port := *portFlag
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

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
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Config
	cfg := config.FromEnv()

	// Optional game archive
	var store *storage.Store
	if cfg.DatabaseURL != "" {
		db, err := storage.New(cfg.DatabaseURL)
		if err != nil {
			zerologlog.Fatal().Err(err).Msg("database connect failed")
		}
		store = storage.NewStore(db)
		zerologlog.Info().Msg("game archive enabled")
	}

	// Metrics
	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.NewRecorder()
		r.GET("/metrics", gin.WrapH(rec.Handler()))
	}

	// Engine wiring
	cat := catalog.New()
	manager := game.NewManager(cat, fuzzymatch.New(), game.Options{
		ContestWindow:  cfg.ContestWindow,
		ContestGrace:   cfg.ContestGrace,
		WinThreshold:   cfg.WinThreshold,
		TurnsPerPlayer: cfg.TurnsPerPlayer,
		ClipDuration:   cfg.ClipDuration,
		MaxPlayers:     cfg.MaxPlayers,
	})
	manager.SetRecorder(rec)
	if store != nil {
		manager.SetArchiver(store)
	}

	sessions := session.NewIssuer(cfg.SessionSecret, cfg.SessionTTL)
	sock := ws.New(manager, cat, catalog.NewFixtureImporter(), sessions)
	io := sock.Mount(r)
	defer io.Close()
	manager.SetEmitter(sock)

	// Archive endpoints; both degrade cleanly when the archive is off.
	r.GET("/api/stats", func(c *gin.Context) {
		stats, err := store.FetchStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})
	r.GET("/api/games/:id", func(c *gin.Context) {
		rec, err := store.LoadGame(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
