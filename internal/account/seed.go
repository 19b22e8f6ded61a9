package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nerrad567/ventana-core/internal/infrastructure/logging"
)

// EnsureOwner returns the user named username, creating it on first boot.
// A non-empty pushToken replaces whatever token is stored; an empty one
// leaves the stored token alone so tokens registered through the API survive
// restarts.
func EnsureOwner(ctx context.Context, repo Repository, username, pushToken string, logger *slog.Logger) (*User, error) {
	user, err := repo.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrUserNotFound):
		user = &User{Username: username, PushToken: pushToken}
		if err := repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("creating owner %q: %w", username, err)
		}
		logger.Info("owner account created", "user_id", user.ID, "username", username)
		return user, nil
	case err != nil:
		return nil, fmt.Errorf("looking up owner %q: %w", username, err)
	}

	if pushToken != "" && pushToken != user.PushToken {
		if err := repo.SetPushToken(ctx, user.ID, pushToken); err != nil {
			return nil, fmt.Errorf("updating owner push token: %w", err)
		}
		user.PushToken = pushToken
		logger.Info("owner push token updated from config",
			"user_id", user.ID, "token", logging.Redact(pushToken))
	}
	return user, nil
}
