package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwalitptl/medbot/internal/app"
	"github.com/jwalitptl/medbot/internal/config"
	"github.com/jwalitptl/medbot/internal/service/chat"
	"github.com/jwalitptl/medbot/internal/service/composer"
	"github.com/jwalitptl/medbot/pkg/logger"
)

func main() {
	configDir := flag.String("config", "", "directory holding config.yml")
	userID := flag.String("user", "cli", "user id recorded with predictions")
	verbose := flag.Bool("v", false, "log at debug level")
	flag.Parse()

	_ = godotenv.Load()

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.LoadConfig(paths...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logCfg := cfg.Log.ToLoggerConfig()
	logCfg.Output = os.Stderr
	if *verbose {
		logCfg.Level = logger.DebugLevel
	} else if logCfg.Level < logger.WarnLevel {
		// Keep the conversation readable.
		logCfg.Level = logger.WarnLevel
	}
	log := logger.NewLogger(logCfg)

	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg, false, log, nil)
	if err != nil {
		log.Fatal(err, "failed to open prediction log")
	}

	// The CLI writes predictions inline; there is no request to keep fast.
	pipeline := app.Build(cfg, chat.NewRepositorySink(stores.Predictions), log, nil)

	run(ctx, pipeline.Service, *userID, os.Stdin, os.Stdout)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stores.Close(closeCtx); err != nil {
		log.Error(err, "failed to close prediction log")
	}
}

type responder interface {
	Respond(ctx context.Context, message, userID string) chat.Reply
}

func run(ctx context.Context, svc responder, userID string, in io.Reader, out io.Writer) {
	fmt.Fprintln(out, composer.Welcome)
	fmt.Fprintln(out, composer.Examples)
	fmt.Fprintln(out, "Type 'exit' to quit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		text := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(text) {
		case "":
			continue
		case "exit", "quit":
			fmt.Fprintln(out, composer.Farewell)
			return
		}
		fmt.Fprintf(out, "Bot: %s\n", svc.Respond(ctx, text, userID).Text)
	}
}
