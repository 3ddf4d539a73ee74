package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"closet/internal/app"
	"closet/internal/config"
	"closet/internal/services"
	"closet/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(config.New())
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Events ---
	mqClient, events, err := connectEvents(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
	}
	if mqClient != nil {
		defer mqClient.Close()
		if err := mqClient.ConsumeEvents(rabbitmq.LogEvent); err != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", err)
		}
	}

	// --- Application ---
	a, err := app.New(cfg, events)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	log.Printf("Starting server on port %s", cfg.AppPort)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := a.Fiber.Listen(cfg.AppPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := a.Fiber.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	// Waits for running try-on jobs before closing the database.
	a.Close()

	log.Println("Server gracefully stopped")
}

// connectEvents dials RabbitMQ when url is set. With no url both results
// are nil and events are not published.
func connectEvents(url string) (*rabbitmq.Client, services.EventPublisher, error) {
	if url == "" {
		log.Println("RABBITMQ_URL not set, events disabled")
		return nil, nil, nil
	}
	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: url})
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}
