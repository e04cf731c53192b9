package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/marco/chatlink/internal/client"
)

// The simulator drives a full two-user conversation against a running
// server: signup, friend request, accept, a short message exchange, and a
// live push listener on each side. It is a development tool for eyeballing
// the end-to-end flow without a UI.
func main() {
	baseURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		baseURL = envURL
	}

	fs := flag.NewFlagSet("simulator", flag.ExitOnError)
	messages := fs.Int("messages", 3, "Number of messages each side sends")
	fs.Parse(os.Args[1:])

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Println("=== Chat Simulator: Full Flow ===")
	fmt.Println()

	alice := newSession(ctx, baseURL, "alice")
	bob := newSession(ctx, baseURL, "bob")
	defer alice.close()
	defer bob.close()

	// Friend request flow.
	fmt.Print("Sending friend request alice -> bob... ")
	req, err := alice.syncer.SendFriendRequest(ctx, bob.user.Username)
	must(err)
	fmt.Println("OK")

	fmt.Print("Accepting friend request as bob... ")
	_, err = bob.syncer.RespondToRequest(ctx, req.ID, true)
	must(err)
	fmt.Println("OK")

	friends, err := alice.syncer.Friends(ctx)
	must(err)
	fmt.Printf("  Alice's friends: %d\n", len(friends))

	// Message exchange.
	fmt.Println()
	fmt.Printf("Exchanging %d messages each way:\n", *messages)
	for i := 0; i < *messages; i++ {
		_, err := alice.syncer.SendMessage(ctx, bob.user.ID, fmt.Sprintf("ping %d", i+1))
		must(err)
		_, err = bob.syncer.SendMessage(ctx, alice.user.ID, fmt.Sprintf("pong %d", i+1))
		must(err)
	}

	// Give the push channel a moment, then read the conversation from each
	// side's cache.
	time.Sleep(500 * time.Millisecond)

	printConversation(ctx, "alice", alice, bob.user.ID)
	printConversation(ctx, "bob", bob, alice.user.ID)

	fmt.Println()
	fmt.Println("Done.")
}

type session struct {
	api    *client.API
	syncer *client.Syncer
	user   *client.UserInfo
	cancel context.CancelFunc
}

func newSession(ctx context.Context, baseURL, name string) *session {
	fmt.Printf("Creating user %s... ", name)

	api := client.New(client.Options{BaseURL: baseURL})
	suffix := uuid.New().String()[:8]
	user, err := api.Signup(ctx,
		fmt.Sprintf("%s_%s", name, suffix),
		fmt.Sprintf("%s_%s@example.com", name, suffix),
		"simulator-password")
	must(err)

	syncer := client.NewSyncer(api, client.SyncerOptions{})
	listener := client.NewListener(api, syncer)

	wsCtx, cancel := context.WithCancel(ctx)
	go func() {
		if err := listener.Run(wsCtx); err != nil && wsCtx.Err() == nil {
			fmt.Printf("  %s listener stopped: %v\n", name, err)
		}
	}()

	fmt.Printf("OK (user: %s)\n", user.Username)
	return &session{api: api, syncer: syncer, user: user, cancel: cancel}
}

func (s *session) close() {
	s.cancel()
	s.syncer.Close()
}

func printConversation(ctx context.Context, name string, s *session, friendID uuid.UUID) {
	msgs, err := s.syncer.Conversation(ctx, friendID)
	must(err)

	fmt.Println()
	fmt.Printf("Conversation as seen by %s (%d messages):\n", name, len(msgs))
	for _, msg := range msgs {
		fmt.Printf("  [%s] %s: %s\n", msg.Time.Format("15:04:05"), msg.Sender, msg.Content)
	}
}

func must(err error) {
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
}
