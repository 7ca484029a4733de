package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/parla-app/parla/internal/background"
	"github.com/parla-app/parla/internal/backend"
	"github.com/parla-app/parla/internal/caption"
	"github.com/parla-app/parla/internal/config"
	"github.com/parla-app/parla/internal/dom"
	"github.com/parla-app/parla/internal/engine"
	"github.com/parla-app/parla/internal/loop"
	"github.com/parla-app/parla/internal/messaging"
	"github.com/parla-app/parla/internal/page"
	"github.com/parla-app/parla/internal/replay"
	"github.com/parla-app/parla/internal/settings"
	"github.com/parla-app/parla/internal/speech"
)

func replayCommand(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	track, err := os.ReadFile(cmd.String("captions"))
	if err != nil {
		return fmt.Errorf("read captions: %w", err)
	}
	cues := replay.ParseVTT(string(track))
	if len(cues) == 0 {
		return fmt.Errorf("no cues in %s", cmd.String("captions"))
	}

	f, err := os.Open(cmd.String("page"))
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	l := loop.New()
	doc, err := dom.Parse(f, l)
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}
	doc.SetLocation(cmd.String("url"), "text/html")
	doc.SetViewport(dom.Size{Width: 1280, Height: 720})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Token, cfg.Backend.TimeoutDuration(), logger)
	if cfg.Backend.Username != "" {
		if _, err := client.Login(ctx, cfg.Backend.Username, cfg.Backend.Password); err != nil {
			logger.Warn("Backend login failed, phrases will not be saved", zap.Error(err))
		}
	}

	store := settings.NewMemoryStore(nil)
	bus := messaging.NewBus(logger)
	background.New(bus, client, store, logger).Register()

	eng := engine.New(doc, l, bus, store, speech.NewRecorder(logger), engineOptions(cfg.Engine), logger)
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	// The loop outlives ctx so the transcript can still be collected after
	// an interrupt.
	runCtx, cancel := context.WithCancel(context.Background())
	var wg conc.WaitGroup
	wg.Go(func() { _ = l.Run(runCtx) })
	defer func() {
		cancel()
		wg.Wait()
	}()

	platform := page.ForCapability(page.Classify(doc.URL(), doc.ContentType()))
	rec := replay.NewRecorder(doc, l)
	if word := cmd.String("click"); word != "" {
		rec.OnCue = func(replay.Cue) {
			if !replay.ClickWord(doc, word) {
				return
			}
			logger.Info("Clicked overlay word", zap.String("word", word))
		}
	}
	player := replay.NewPlayer(doc, l, platform, cues, logger)
	if err := onLoop(l, func() error {
		rec.Start()
		return player.Start()
	}); err != nil {
		return err
	}

	select {
	case <-player.Done():
	case <-ctx.Done():
		logger.Info("Replay interrupted")
	}

	// Wait only needs the loop's queue, so in-flight translations land
	// before the engine is stopped.
	var transcript []replay.Cue
	_ = onLoop(l, func() error {
		player.Stop()
		transcript = rec.Stop()
		eng.Wait()
		return nil
	})
	_ = onLoop(l, func() error {
		eng.Stop()
		return nil
	})

	logger.Info("Replay complete",
		zap.Int("cues", len(cues)),
		zap.Int("overlay_cues", len(transcript)))
	return writeTranscript(cmd.String("out"), replay.FormatVTT(transcript))
}

// onLoop runs fn on the loop and waits for it.
func onLoop(l *loop.Loop, fn func() error) error {
	errCh := make(chan error, 1)
	l.Post(func() { errCh <- fn() })
	return <-errCh
}

func writeTranscript(path, vtt string) error {
	if path == "" {
		_, err := fmt.Fprint(os.Stdout, vtt)
		return err
	}
	if err := os.WriteFile(path, []byte(vtt), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

func engineOptions(cfg config.Engine) engine.Options {
	opts := engine.DefaultOptions()
	opts.Caption = caption.Options{
		PollInterval: cfg.PollIntervalDuration(),
		MaxAttempts:  cfg.MaxAttempts,
	}
	opts.ResumeDelay = cfg.ResumeDelayDuration()
	opts.SettleDelay = cfg.SettleDelayDuration()
	return opts
}
