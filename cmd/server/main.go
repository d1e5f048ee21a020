// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/tanglesocial/tangle/internal/auth"
	"github.com/tanglesocial/tangle/internal/database"
	"github.com/tanglesocial/tangle/internal/friendship"
	"github.com/tanglesocial/tangle/internal/handlers"
	"github.com/tanglesocial/tangle/internal/middleware"
	"github.com/tanglesocial/tangle/internal/notify"
	"github.com/tanglesocial/tangle/internal/presence"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := auth.Init(); err != nil {
		log.Fatalf("auth init: %v", err)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer pool.Close()

	var tracker *presence.Tracker
	if rdb, err := presence.Connect(ctx); err != nil {
		logger.WithError(err).Warn("redis unavailable; last-seen disabled")
	} else {
		tracker = presence.NewTracker(rdb, 0, logger)
	}

	users := database.NewUserStore(pool)
	relationships := database.NewRelationshipStore(pool)
	posts := database.NewPostStore(pool)
	notifications := database.NewNotificationStore(pool)

	var presenceReader friendship.PresenceReader
	if tracker != nil {
		presenceReader = tracker
	}
	engine := friendship.NewEngine(relationships, users, presenceReader, logger)
	suggester := friendship.NewSuggester(relationships, users, logger)
	hub := notify.NewHub(logger)

	userHandler := &handlers.UserHandler{Users: users}
	friendHandler := &handlers.FriendHandler{
		Engine:        engine,
		Suggester:     suggester,
		Notifications: notifications,
		Hub:           hub,
		Log:           logger,
	}
	postHandler := &handlers.PostHandler{
		Posts:         posts,
		Notifications: notifications,
		Hub:           hub,
		Log:           logger,
	}
	notificationHandler := &handlers.NotificationHandler{Store: notifications}

	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/users/create", userHandler.Create)
	mux.HandleFunc("/users/login", userHandler.Login)
	mux.HandleFunc("/users/me", userHandler.Me)

	// friend endpoints
	mux.HandleFunc("/friends/request", friendHandler.Request)
	mux.HandleFunc("/friends/accept", friendHandler.Accept)
	mux.HandleFunc("/friends/decline", friendHandler.Decline)
	mux.HandleFunc("/friends/remove", friendHandler.Remove)
	mux.HandleFunc("/friends", friendHandler.List)
	mux.HandleFunc("/friends/requests", friendHandler.Requests)
	mux.HandleFunc("/friends/suggestions", friendHandler.Suggestions)

	// post endpoints; /posts/{id}/comments dispatches on method
	mux.HandleFunc("/posts", postHandler.Create)
	mux.HandleFunc("/posts/feed", postHandler.Feed)
	mux.HandleFunc("/posts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			postHandler.Comment(w, r)
			return
		}
		postHandler.Comments(w, r)
	})

	// notification endpoints
	mux.HandleFunc("/notifications", notificationHandler.List)
	mux.HandleFunc("/notifications/read", notificationHandler.MarkRead)

	// realtime notification socket
	mux.Handle("/ws", handlers.NotificationWSHandler(logger, hub))

	handler := middleware.LogMiddleware(logger)(middleware.TouchPresence(tracker)(mux))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
