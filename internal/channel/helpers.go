package channel

import (
	"context"
	"encoding/json"
)

// SendSwapRequest emits a new swap request.
func (c *Client) SendSwapRequest(ctx context.Context, request any) (json.RawMessage, error) {
	return c.Emit(ctx, EventSwapRequest, request)
}

// UpdateSwapStatus emits a status change for swapID.
func (c *Client) UpdateSwapStatus(ctx context.Context, swapID, status string) (json.RawMessage, error) {
	return c.Emit(ctx, EventSwapUpdate, map[string]string{"swapId": swapID, "status": status})
}

// SendMessage emits a chat message.
func (c *Client) SendMessage(ctx context.Context, message any) (json.RawMessage, error) {
	return c.Emit(ctx, EventMessage, message)
}

// JoinUserRoom subscribes the connection to userID's room.
func (c *Client) JoinUserRoom(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.Emit(ctx, EventJoinRoom, map[string]string{"userId": userID})
}

// LeaveUserRoom unsubscribes the connection from userID's room.
func (c *Client) LeaveUserRoom(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.Emit(ctx, EventLeaveRoom, map[string]string{"userId": userID})
}

// UpdateUserStatus publishes the user's presence, such as "online" or "away".
func (c *Client) UpdateUserStatus(ctx context.Context, status string) (json.RawMessage, error) {
	return c.Emit(ctx, EventUserStatus, map[string]string{"status": status})
}

// Ping round-trips an empty event.
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	return c.Emit(ctx, EventPing, struct{}{})
}
