package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"

	"github.com/axiometa/academy/internal/streaming"
	"github.com/axiometa/academy/pkg/schema"
)

// LearnerNotifier pushes notifications to the assistant serving a learner.
type LearnerNotifier interface {
	Notify(ctx context.Context, learnerID string, payload map[string]any) error
}

// MCPNotifier implements LearnerNotifier using MCP notifications.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes via the learner's MCP session.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions}
}

// Notify sends a notification to the learner's MCP session.
// Best-effort: returns nil if no session has acted for the learner.
func (n *MCPNotifier) Notify(_ context.Context, learnerID string, payload map[string]any) error {
	sessionID, ok := n.sessions.SessionFor(learnerID)
	if !ok {
		return nil
	}
	err := n.mcpServer.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		n.sessions.Remove(sessionID)
		return nil
	}
	return err
}

// milestoneEvents are forwarded to assistants as they happen.
var milestoneEvents = []string{
	schema.EventLessonCompleted,
	schema.EventXPAwarded,
	schema.EventLevelUp,
}

// ForwardMilestones relays completion, XP and level-up events from the hub
// to connected assistants until ctx is cancelled.
func (s *AcademyServer) ForwardMilestones(ctx context.Context) error {
	if s.hub == nil {
		return nil
	}
	ch, cancel, err := s.hub.Subscribe(ctx, streaming.EventFilter{EventTypes: milestoneEvents})
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			payload := map[string]any{
				"level": "info",
				"data": map[string]any{
					"event":      ev.EventType,
					"learner_id": ev.LearnerID,
					"lesson_id":  ev.LessonID,
					"payload":    ev.Payload,
				},
			}
			if err := s.notifier.Notify(ctx, ev.LearnerID, payload); err != nil {
				s.logger.WarnContext(ctx, "milestone notification failed", "learner_id", ev.LearnerID, "error", err)
			}
		}
	}
}
