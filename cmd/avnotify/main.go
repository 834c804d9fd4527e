// Command avnotify runs the notification appliance: hardware buttons and the
// web form feed one event queue, the state machine mirrors notices to the
// OLED and the remote video mixer, and acknowledged notices auto-clear.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/tinyfont/freesans"

	"avnotify/config"
	"avnotify/drivers/sh1106"
	"avnotify/osc"
	"avnotify/persist"
	"avnotify/queue"
	"avnotify/services/display"
	"avnotify/services/hal"
	"avnotify/services/notify"
	"avnotify/services/timesync"
	"avnotify/services/update"
	"avnotify/services/web"
	"avnotify/types"
	"avnotify/x/logx"
)

const queueCap = 10

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	fetchUpdate := flag.Bool("fetch-update", false, "download the update manifest into the staging directory and exit")
	flag.Parse()

	if err := run(*configPath, *fetchUpdate); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, fetchUpdate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Boot logger until the diagnostic log file is open.
	bootlog := logx.New(cfg.Logging.Level, nil)

	if fetchUpdate {
		updater := update.New(cfg.Update.ManifestURL, cfg.Update.StagingDir, bootlog)
		n, err := updater.Fetch(ctx)
		if err != nil {
			return err
		}
		bootlog.Info().Int("files", n).Msg("restart to apply the staged update")
		return nil
	}

	// A staged update replaces files in place, so it must land before any
	// of them are opened. The config is reloaded in case it was updated.
	update.Apply(".", cfg.Update.StagingDir, bootlog)
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}

	diag := persist.NewDiagLog(cfg.Files.Log)
	log := logx.New(cfg.Logging.Level, diag)
	go diag.Run(ctx)
	log.Info().Str("config", configPath).Msg("starting")

	events := queue.MustNew[types.Event](queueCap)
	displayCmds := queue.MustNew[types.DisplayCommand](queueCap)
	ledCmds := queue.MustNew[types.LedCommand](queueCap)

	pins := hal.DefaultPinFactory()
	i2cs := hal.DefaultI2CFactory()

	bus, ok := i2cs.ByID(cfg.Display.I2CBus)
	if !ok {
		return fmt.Errorf("unknown i2c bus %q", cfg.Display.I2CBus)
	}
	dev := sh1106.New(bus)
	if err := dev.Configure(sh1106.Config{
		Address:   cfg.Display.I2CAddr,
		Width:     int16(cfg.Display.Width),
		Height:    int16(cfg.Display.Height),
		Rotate180: cfg.Display.Rotate180,
	}); err != nil {
		return fmt.Errorf("display init: %w", err)
	}

	disp := display.New(&dev, &freesans.Regular12pt7b, displayCmds, log)
	disp.Start(ctx)

	buttons, err := hal.NewButtons(pins, hal.ButtonsConfig{
		AcceptPin: cfg.Hardware.AcceptPin,
		RejectPin: cfg.Hardware.RejectPin,
		Debounce:  time.Duration(cfg.Hardware.DebounceMS) * time.Millisecond,
	}, events, log)
	if err != nil {
		return err
	}
	buttons.Start(ctx)

	led, err := hal.NewLED(pins, cfg.Hardware.LedPin, ledCmds, log)
	if err != nil {
		return err
	}
	led.Start(ctx)

	sender, err := osc.NewSender(cfg.Remote.Target, log)
	if err != nil {
		return err
	}
	defer sender.Close()

	clock := timesync.New(cfg.TimeSync.Server, log)
	go clock.Run(ctx)

	store := persist.NewStore(cfg.Files.Messages, log)
	state := notify.New(events, displayCmds, ledCmds, sender, store, notify.Config{
		Paths: notify.RemotePaths{
			Text:    cfg.Remote.PathText,
			Opacity: cfg.Remote.PathOpacity,
			Connect: cfg.Remote.PathConnect,
			Group:   cfg.Remote.PathGroup,
		},
		Now: clock.Now,
	}, log)
	state.Start(ctx)

	server := web.New(cfg.Web, events, state, log)
	go func() {
		if err := server.Run(ctx); err != nil {
			log.Error().Err(err).Msg("web server stopped")
		}
	}()

	if err := config.Watch(ctx, configPath, log, func(c *config.Config) {
		if err := sender.SetTarget(c.Remote.Target); err != nil {
			log.Warn().Err(err).Str("target", c.Remote.Target).Msg("remote target not updated")
		}
		buttons.SetDebounce(time.Duration(c.Hardware.DebounceMS) * time.Millisecond)
		if lvl, err := zerolog.ParseLevel(c.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}); err != nil {
		log.Warn().Err(err).Msg("config watcher not started")
	}

	go showReady(ctx, displayCmds)

	<-ctx.Done()
	log.Info().Msg("shutting down")
	diag.Flush()
	return nil
}

// showReady puts "Bereit" on the display for a few seconds after boot.
func showReady(ctx context.Context, cmds *queue.Queue[types.DisplayCommand]) {
	cmds.Put(ctx, types.DisplayCommand{Type: types.DisplayNewText, Value: "Bereit"})
	select {
	case <-ctx.Done():
		return
	case <-time.After(3 * time.Second):
	}
	cmds.Put(ctx, types.DisplayCommand{Type: types.DisplayDeleteText})
}
