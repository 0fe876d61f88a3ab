package service

import (
	"context"
	"errors"
	"strings"

	"marketplace/internal/entity"
	"marketplace/internal/repository"
)

// GuestIdentity is what a guest checkout form tells us about the buyer.
type GuestIdentity struct {
	Email     string
	FirstName string
	LastName  string
}

// ResolveGuest finds the user owning email (case-insensitive) or creates a
// credential-less, unverified consumer for it. An existing account is reused
// as-is whatever its verification state. Run it with transaction-bound
// repositories so a failed checkout leaves no orphan user behind.
func ResolveGuest(ctx context.Context, users repository.UserRepository, identity GuestIdentity) (*entity.User, bool, error) {
	email, err := normalizeEmail(identity.Email)
	if err != nil {
		return nil, false, err
	}

	user, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	user, err = users.CreateUser(ctx, &entity.User{
		Email:     email,
		FirstName: strings.TrimSpace(identity.FirstName),
		LastName:  strings.TrimSpace(identity.LastName),
		Verified:  false,
		Active:    true,
		Role:      entity.RoleConsumer,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent checkout created it first.
		user, err = users.GetUserByEmailForUpdate(ctx, email)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	logger.Info().Int64("user_id", user.ID).Msg("Created guest user for checkout")
	return user, true, nil
}
