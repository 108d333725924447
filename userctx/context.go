package userctx

import "context"

// Context key type
type contextKey string

const actorKey contextKey = "actor"
const DiscordIDKey contextKey = "discord_id"

// WithActor records who triggered the current operation (a Discord tag for
// bot interactions, a client IP for web requests). Audit entries pick it up.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Actor retrieves the acting identity from the context.
func Actor(ctx context.Context) string {
	actor, ok := ctx.Value(actorKey).(string)
	if !ok || actor == "" {
		return "system"
	}
	return actor
}

// WithDiscordID adds the authenticated Discord id to the context.
func WithDiscordID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, DiscordIDKey, id)
}

// DiscordID retrieves the authenticated Discord id from the context.
func DiscordID(ctx context.Context) string {
	if id, ok := ctx.Value(DiscordIDKey).(string); ok {
		return id
	}
	return ""
}
