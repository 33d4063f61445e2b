package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-chat/config"
	"github.com/oksasatya/go-ddd-chat/internal/application"
	pginfra "github.com/oksasatya/go-ddd-chat/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-chat/pkg/helpers"
)

// seed writes one demo chat straight to Postgres. No events are published, so
// nothing is indexed, pushed or emailed.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	svc := application.NewChatService(pginfra.NewChatRepository(pool), nil, logger)

	chat, err := svc.CreateChat(ctx, application.CreateChatInput{
		ChatName:     "General",
		CreatorName:  "Alice",
		CreatorEmail: "alice@example.com",
	})
	if err != nil {
		log.Fatalf("failed to seed chat: %v", err)
	}
	chatID := chat.ID().String()

	script := []application.SendMessageInput{
		{ChatID: chatID, Content: "Welcome to the demo chat!", SenderName: "Alice", SenderEmail: "alice@example.com"},
		{ChatID: chatID, Content: "Hi Alice, glad to be here.", SenderName: "Bob", SenderEmail: "bob@example.com"},
		{ChatID: chatID, Content: "Lunch at noon?", SenderName: "Carol", SenderEmail: "carol@example.com"},
	}
	for _, in := range script {
		if _, err := svc.SendMessage(ctx, in); err != nil {
			log.Fatalf("failed to seed message: %v", err)
		}
	}
	fmt.Printf("seeded chat: id=%s name=%s messages=%d\n", chatID, chat.Name(), len(script))
}
