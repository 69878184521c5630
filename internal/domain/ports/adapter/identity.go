package adapter

import "context"

// IdentityProvider validates end-user credentials and returns their user id.
type IdentityProvider interface {
	Validate(ctx context.Context, username, password string) (int64, error)
}
