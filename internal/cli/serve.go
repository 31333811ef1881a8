package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edumarques81/wavequeue/internal/audio"
	"github.com/edumarques81/wavequeue/internal/config"
	"github.com/edumarques81/wavequeue/internal/domain/library"
	"github.com/edumarques81/wavequeue/internal/domain/player"
	"github.com/edumarques81/wavequeue/internal/infra/waveform"
	"github.com/edumarques81/wavequeue/internal/transport/socketio"
	"github.com/edumarques81/wavequeue/internal/version"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve [track-id...]",
	Short: "Run the player and the Socket.io server",
	Long: `Run the queue engine, the speaker output and the HTTP/Socket.io server.
Track IDs given as arguments are queued at startup and the first one plays.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := Config()
		if cmd.Flags().Changed("port") {
			c.Server.Port = servePort
		}
		return serve(cmd.Context(), c, args)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP server port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// newEngine builds the engine over the library's audio streams.
func newEngine(c *config.Config, opener player.StreamOpener, controller *audio.Controller) *player.Engine {
	var wf player.WaveformProcessor
	if !c.Waveform.Disabled {
		wf = waveform.NewProcessor(waveform.Options{
			BucketsPerSecond: c.Waveform.BucketsPerSecond,
			Scale:            c.Waveform.Scale,
		})
	}

	factory := audio.NewSpeakerFactory(opener, controller, audio.SpeakerOptions{
		SampleRate:      c.Audio.SampleRate,
		ResampleQuality: c.Audio.ResampleQuality,
		Volume:          c.Audio.Volume,
	})

	return player.NewEngine(player.Options{
		Factory:          factory,
		Opener:           opener,
		Waveform:         wf,
		TickInterval:     c.Engine.TickDuration(),
		RestartThreshold: c.Engine.RestartThreshold,
		MailboxSize:      c.Engine.MailboxSize,
	})
}

func serve(parent context.Context, c *config.Config, trackIDs []string) error {
	info := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", info.String())
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Int("port", c.Server.Port).
		Str("source", c.Library.Source).
		Str("music_dir", c.Library.MusicDir).
		Bool("cache", c.Library.CacheDB != "").
		Bool("watch", c.Library.Watch).
		Bool("waveform", !c.Waveform.Disabled).
		Msg("Configuration")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildLibrary(c)
	if err != nil {
		return err
	}
	defer st.close()

	controller := audio.NewController(c.Audio.SampleRate)
	engine := newEngine(c, st.service, controller)

	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(ctx) }()
	defer engine.Close()

	socketServer, err := socketio.NewServer(engine, st.service, socketio.Options{
		ProgressWindow:     c.Server.ProgressWindowDuration(),
		MaxExternalClients: c.Server.MaxExternalClients,
	})
	if err != nil {
		return fmt.Errorf("failed to create Socket.io server: %w", err)
	}
	defer socketServer.Close()
	socketServer.StartEngineWatcher(ctx)

	if st.service.IsCacheEnabled() {
		go func() {
			if _, err := st.service.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("Initial library scan failed, serving the previous snapshot")
			}
		}()
	}
	if c.Library.Watch {
		startLibraryWatch(ctx, c, st)
	}

	if len(trackIDs) > 0 {
		if err := enqueueIDs(ctx, engine, st.service, trackIDs); err != nil {
			log.Error().Err(err).Msg("Failed to queue startup tracks")
		}
	}

	a := &api{
		engine:    engine,
		artwork:   st.artwork,
		thumbs:    st.thumbs,
		audio:     controller,
		socket:    socketServer,
		staticDir: c.Server.StaticDir,
	}
	if st.mpdClient != nil {
		a.health = st.mpdClient.Ping
	}

	addr := fmt.Sprintf(":%d", c.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      a.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case err := <-engineDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Engine stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
	return nil
}

// enqueueIDs resolves ids through the library and queues them in order.
func enqueueIDs(ctx context.Context, engine *player.Engine, lib *library.Service, ids []string) error {
	tracks, err := lib.ResolveTracks(ctx, ids)
	if err != nil {
		return err
	}
	entries, err := engine.EnqueueAll(ctx, tracks)
	if err != nil {
		return err
	}
	log.Info().Int("tracks", len(entries)).Msg("Queued startup tracks")
	return nil
}

// startLibraryWatch refreshes the library when the music folder or the MPD
// database changes.
func startLibraryWatch(ctx context.Context, c *config.Config, st *stack) {
	refresh := func() {
		if _, err := st.service.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("Library refresh failed")
		}
	}

	if st.mpdClient != nil {
		events, err := st.mpdClient.Watch("database")
		if err != nil {
			log.Warn().Err(err).Msg("MPD database watch unavailable")
			return
		}
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case subsystem, ok := <-events:
					if !ok {
						log.Warn().Msg("MPD watcher channel closed")
						return
					}
					log.Debug().Str("subsystem", subsystem).Msg("MPD subsystem changed")
					refresh()
				}
			}
		}()
		return
	}

	if st.files == nil {
		return
	}
	w, err := library.NewWatcher(st.files.Root(), c.Library.WatchDelayDuration(), refresh)
	if err != nil {
		log.Warn().Err(err).Msg("Library watch unavailable")
		return
	}
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Msg("Library watcher stopped")
		}
	}()
}
