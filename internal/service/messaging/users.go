package messaging

import (
	"context"

	stream "github.com/GetStream/stream-chat-go/v6"
	"github.com/samber/lo"

	"github.com/zhouzirui/support-desk/backend/internal/model/identity"
)

// UpsertIdentities creates or updates every identity in one call. Repeating
// the call with the same identities is a no-op on the backend.
func (c *Client) UpsertIdentities(ctx context.Context, identities []identity.Identity) error {
	if len(identities) == 0 {
		return nil
	}

	users := lo.Map(identities, func(id identity.Identity, _ int) *stream.User {
		return &stream.User{ID: id.ID, Name: id.Name, Role: backendRole(id.Role)}
	})
	if _, err := c.sdk.UpsertUsers(ctx, users...); err != nil {
		return upstream("UpsertUsers", err)
	}
	return nil
}

// backendRole maps our roles onto Stream's built-in roles.
func backendRole(role identity.Role) string {
	if role == identity.RoleAdmin {
		return "admin"
	}
	return "user"
}
