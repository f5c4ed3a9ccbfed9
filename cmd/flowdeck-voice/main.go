package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"flowdeck/internal/config"
	"flowdeck/internal/hume"
	"flowdeck/internal/ipc"
	"flowdeck/internal/notify"
	"flowdeck/internal/voice"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides LOG_LEVEL)")
	socket := cli.StringP("socket", "s", "", "Control socket path (overrides FLOWDECK_SOCKET)")
	silent := cli.Bool("silent", false, "Disable audible recording cues")
	cli.Parse()

	godotenv.Load(*envFile)
	cfg := config.Load()
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *socket != "" {
		cfg.SocketPath = *socket
	}

	logger := log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[cfg.LogLevel],
	}))
	log.SetDefault(logger)

	logger.Info("booting up", "socket", cfg.SocketPath, "auto_stop", cfg.AutoStop)

	if err := portaudio.Initialize(); err != nil {
		logger.Error("failed to init audio", "error", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	emotion := hume.NewClient(hume.Config{
		APIKey:    cfg.HumeAPIKey,
		SecretKey: cfg.HumeSecretKey,
		ConfigID:  cfg.HumeConfigID,
	}, logger)

	pipeline := voice.NewPipeline(voice.NewMicrophone(), emotion, cfg.AutoStop, logger)
	if cfg.HumeAPIKey != "" {
		pipeline.WithLiveStream(func(on func([]hume.EmotionScore)) (voice.LiveStream, error) {
			return emotion.OpenStream(on)
		})
	}
	defer pipeline.Close()

	cue := func(f func() error) {
		if *silent {
			return
		}
		if err := f(); err != nil {
			logger.Warn("cue playback failed", "error", err)
		}
	}

	server, err := ipc.StartServer(cfg.SocketPath, func(msg ipc.ControlMessage) ipc.ControlReply {
		switch msg.Cmd {
		case ipc.CmdStart:
			if err := pipeline.Start(context.Background()); err != nil {
				return ipc.ControlReply{Error: err.Error()}
			}
			cue(notify.StartCue)
			return ipc.ControlReply{OK: true, State: string(pipeline.State())}

		case ipc.CmdStop:
			capture, err := pipeline.Stop(context.Background())
			cue(notify.StopCue)
			if err != nil {
				return ipc.ControlReply{Error: err.Error()}
			}
			if capture != nil {
				logger.Info("capture complete",
					"transcript", capture.Transcript,
					"emotions", len(capture.Emotions),
					"degraded", capture.Degraded)
			}
			return ipc.ControlReply{OK: true, State: string(pipeline.State())}

		case ipc.CmdStatus:
			return ipc.ControlReply{
				OK:    true,
				State: string(pipeline.State()),
				Level: pipeline.Level(),
			}

		default:
			logger.Warn("unknown command", "cmd", msg.Cmd)
			return ipc.ControlReply{Error: "unknown command: " + msg.Cmd}
		}
	})
	if err != nil {
		logger.Error("failed to start control server", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	logger.Info("boot up - successful")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}
