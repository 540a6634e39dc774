package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/korjavin/exambot/bot"
	"github.com/korjavin/exambot/config"
	"github.com/korjavin/exambot/status"
)

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting ExamBot...")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize and start the bot
	b, err := bot.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}
	defer b.Close()

	if cfg.StatusAddr != "" {
		h := status.NewHandler(b.Engine(), b.Profiles())
		go func() {
			if err := status.Serve(ctx, cfg.StatusAddr, h.Routes()); err != nil {
				log.Printf("Status server failed: %v", err)
			}
		}()
	}

	log.Println("Bot initialized successfully")
	b.Start(ctx)
}
