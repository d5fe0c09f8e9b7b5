package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/taskpilot/taskpilot/src/storage"
	"github.com/taskpilot/taskpilot/src/window"
)

// SessionsCmd manages stored sessions
type SessionsCmd struct {
	List SessionsListCmd `cmd:"" default:"1" help:"List stored sessions"`
	Show SessionsShowCmd `cmd:"" help:"Show one session's conversation stats"`
}

// SessionsListCmd lists stored sessions
type SessionsListCmd struct{}

func (c *SessionsListCmd) Run(ctx *kong.Context, cli *CLI) error {
	_, cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	db, err := openDatabase(cli, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := storage.ListSessions(context.Background(), db.DB())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}

	for _, s := range sessions {
		current := "-"
		if s.CurrentConversationID != nil {
			current = *s.CurrentConversationID
		}
		fmt.Printf("%s  identity=%s  conversations=%d  current=%s  updated=%s\n",
			s.ID, s.Identity, len(s.ConversationIDs), current, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// SessionsShowCmd prints conversation statistics for one session
type SessionsShowCmd struct {
	ID string `arg:"" help:"Session ID"`
}

func (c *SessionsShowCmd) Run(ctx *kong.Context, cli *CLI) error {
	_, cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	db, err := openDatabase(cli, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	cctx := context.Background()
	session, err := storage.GetSessionByID(cctx, db.DB(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %s not found", c.ID)
	}

	fmt.Printf("Session %s (identity=%s)\n", session.ID, session.Identity)

	log := storage.NewLog(db.DB())
	for _, convID := range session.ConversationIDs {
		messages, err := log.Messages(cctx, convID)
		if err != nil {
			return fmt.Errorf("failed to load conversation %s: %w", convID, err)
		}
		stats := window.Collect(messages)
		fmt.Printf("  %s: %d messages (%d user, %d assistant, %d tool), %d tool calls, avg length %.0f\n",
			convID, stats.Total, stats.UserMessages, stats.AssistantMessages,
			stats.ToolMessages, stats.TotalToolCalls, stats.AvgMessageLength)
		if len(stats.UniqueTools) > 0 {
			fmt.Printf("    tools: %v\n", stats.UniqueTools)
		}
	}
	return nil
}
