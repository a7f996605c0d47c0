package budget

import "context"

// Store persists one Config per user identity. The engine treats the config
// as provided input; ownership of the bytes lives with the backing storage.
type Store interface {
	// Load returns the user's config and whether one was ever saved.
	Load(ctx context.Context, userID string) (Config, bool, error)
	// Save clamps and persists the config for the user.
	Save(ctx context.Context, userID string, cfg Config) error
}
