package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	audioimpl "github.com/minutelab/minute/external/audio"
	configloader "github.com/minutelab/minute/external/config"
	repositoryimpl "github.com/minutelab/minute/external/repository"
	summarizerimpl "github.com/minutelab/minute/external/summarizer"
	transcriberimpl "github.com/minutelab/minute/external/transcriber"
	webhookimpl "github.com/minutelab/minute/external/webhook"
	"github.com/minutelab/minute/internal/cache"
	"github.com/minutelab/minute/internal/config"
	"github.com/minutelab/minute/internal/gateway"
)

func main() {
	var (
		inputPath = flag.String("file", "", "path to the audio file to transcribe")
		outputDir = flag.String("out", "", "directory to place the transcript in (defaults to the input file's directory)")
	)
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: transcribe -file <audio file> [-out <directory>]")
		os.Exit(2)
	}

	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	initLogger(cfg)

	injector := do.New()
	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	summarizerimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	cache.RegisterDI(injector)
	gateway.RegisterDI(injector)

	gw, err := do.Invoke[*gateway.Gateway](injector)
	if err != nil {
		slog.Error("failed to resolve transcription gateway", "error", err)
		os.Exit(1)
	}

	dest := *outputDir
	if dest == "" {
		dest = "."
	}

	transcript, artifacts, err := gw.TranscribeFile(context.Background(), *inputPath, dest)
	if err != nil {
		slog.Error("transcription failed", "file", *inputPath, "error", err)
		os.Exit(1)
	}

	for _, p := range artifacts {
		slog.Info("wrote artifact", "path", p)
	}
	fmt.Println(transcript)
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}
