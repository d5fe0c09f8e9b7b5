package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/taskpilot/taskpilot/src/config"
	"github.com/taskpilot/taskpilot/src/dedup"
	"github.com/taskpilot/taskpilot/src/modelclient"
	"github.com/taskpilot/taskpilot/src/orchestrator"
	"github.com/taskpilot/taskpilot/src/storage"
	"github.com/taskpilot/taskpilot/src/toolset"
)

// ChatCmd sends one message through the assistant pipeline
type ChatCmd struct {
	Text     []string `arg:"" help:"The message to send"`
	Identity string   `help:"Identity the session belongs to" default:"local"`
	Session  string   `help:"Resume a specific session by ID"`
	Resume   bool     `short:"r" help:"Resume the identity's latest session"`
	Model    string   `short:"m" help:"Model override for this message"`
	MaxTurns int      `help:"Maximum model/tool turns" default:"0"`
}

func (c *ChatCmd) Run(ctx *kong.Context, cli *CLI) error {
	logger := createLogger(cli)
	cctx := context.Background()

	manager, cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if c.Model != "" {
		cfg.Agent.Model = c.Model
	}
	if c.MaxTurns > 0 {
		cfg.Conversation.MaxTurns = c.MaxTurns
	}

	apiKey, err := manager.ResolveAPIKey()
	if err != nil {
		return err
	}

	db, err := openDatabase(cli, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	session, conversation, err := resolveSession(cctx, db, c.Identity, c.Session, c.Resume)
	if err != nil {
		return err
	}

	model := modelclient.NewClient(modelclient.Config{
		APIKey:     apiKey,
		BaseURL:    cfg.API.BaseURL,
		Model:      cfg.Agent.Model,
		Timeout:    cfg.API.Timeout,
		RetryCount: cfg.API.Retry.MaxRetries,
		RetryDelay: cfg.API.Retry.InitialDelay,
		Logger:     logger,
	})

	deduper := dedup.New(dedup.Config{
		Store:  storage.NewDedupStore(db.DB()),
		TTL:    cfg.Dedup.TTL,
		Logger: logger,
	})

	// No tools ship in-binary yet; integrations register here.
	tools := toolset.NewRegistry()
	tools.Use(toolset.LoggingMiddleware(logger))

	engine, err := orchestrator.New(orchestrator.Config{
		Log:                storage.NewLog(db.DB()),
		Model:              model,
		Tools:              tools,
		Dedup:              deduper,
		Summaries:          storage.NewSummaryStore(db.DB()),
		Snapshots:          storage.NewSnapshotStore(db.DB()),
		Logger:             logger,
		MaxContextMessages: cfg.Conversation.MaxContextMessages,
		LoopWindow:         cfg.Conversation.LoopWindow,
		MaxTurns:           cfg.Conversation.MaxTurns,
	})
	if err != nil {
		return err
	}

	text := strings.Join(c.Text, " ")
	result, err := engine.HandleMessage(cctx, orchestrator.Request{
		ConversationID: conversation.ID,
		SessionID:      session.ID,
		Identity:       c.Identity,
		RequestHash:    requestHash(c.Identity, conversation.ID, text),
		Text:           text,
	})
	if err != nil {
		return err
	}

	if result.Duplicate {
		fmt.Println("This request was already handled a moment ago.")
		return nil
	}

	fmt.Println(result.Reply)

	session.UpdatedAt = time.Now()
	if err := storage.UpdateSession(cctx, db.DB(), session); err != nil {
		logger.Warn("failed to touch session", "error", err)
	}
	return nil
}

// requestHash derives the dedup key for one inbound message
func requestHash(identity, conversationID, text string) string {
	sum := sha256.Sum256([]byte(identity + "\x00" + conversationID + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// loadConfig loads configuration through a manager and applies CLI flag
// overrides. The manager is returned so callers can resolve secrets.
func loadConfig(cli *CLI) (*config.Manager, *config.Config, error) {
	manager, err := config.NewManager()
	if err != nil {
		return nil, nil, err
	}
	cfg := manager.Get()
	if cli.APIKey != "" {
		cfg.API.APIKey = cli.APIKey
	}
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.DBPath != "" {
		cfg.Data.DatabasePath = cli.DBPath
	}
	return manager, cfg, nil
}

// openDatabase opens the sqlite store, creating its directory if needed
func openDatabase(cli *CLI, cfg *config.Config) (*storage.DB, error) {
	dbPath := cfg.Data.DatabasePath
	if dbPath == "" {
		dbPath = config.GetDefaultStoragePaths().DatabasePath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// resolveSession finds or creates the session and conversation to use
func resolveSession(ctx context.Context, db *storage.DB, identity, sessionID string, resume bool) (*storage.Session, *storage.Conversation, error) {
	var session *storage.Session
	var err error

	switch {
	case sessionID != "":
		session, err = storage.GetSessionByID(ctx, db.DB(), sessionID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}
	case resume:
		session, err = storage.GetLatestSession(ctx, db.DB(), identity)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load latest session: %w", err)
		}
	}

	if session != nil && session.CurrentConversationID != nil {
		conversation, err := storage.GetConversationByID(ctx, db.DB(), *session.CurrentConversationID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		if conversation != nil {
			return session, conversation, nil
		}
	}

	now := time.Now()
	conversation := &storage.Conversation{
		ID:        uuid.New().String(),
		Title:     "New conversation",
		Identity:  identity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := storage.CreateConversation(ctx, db.DB(), conversation); err != nil {
		return nil, nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	if session == nil {
		session = &storage.Session{
			ID:        uuid.New().String(),
			Identity:  identity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		session.CurrentConversationID = &conversation.ID
		session.ConversationIDs = storage.JSONStringArray{conversation.ID}
		if err := storage.CreateSession(ctx, db.DB(), session); err != nil {
			return nil, nil, fmt.Errorf("failed to create session: %w", err)
		}
		// CreateSession does not persist the current conversation pointer
		if err := storage.UpdateSession(ctx, db.DB(), session); err != nil {
			return nil, nil, fmt.Errorf("failed to update session: %w", err)
		}
		return session, conversation, nil
	}

	session.CurrentConversationID = &conversation.ID
	session.ConversationIDs = append(session.ConversationIDs, conversation.ID)
	session.UpdatedAt = now
	if err := storage.UpdateSession(ctx, db.DB(), session); err != nil {
		return nil, nil, fmt.Errorf("failed to update session: %w", err)
	}
	return session, conversation, nil
}
