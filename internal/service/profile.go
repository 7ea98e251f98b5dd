package service

import (
	"context"

	"github.com/openhrms/fieldlink/internal/adapters/frappe"
	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/ports"
)

// ProfileService hydrates the display profile in two steps: resolve the
// token's user identifier, then load that User record. Both steps run
// against the backend with the caller's bearer token.
type ProfileService struct {
	client *frappe.Client
}

var _ ports.ProfileLoader = (*ProfileService)(nil)

// NewProfileService constructs a ProfileService over the given API client.
func NewProfileService(client *frappe.Client) *ProfileService {
	return &ProfileService{client: client}
}

// Fetch resolves the profile for the given access token. The display name
// falls back from full name to first name to the raw identifier.
func (s *ProfileService) Fetch(ctx context.Context, accessToken string) (domainsession.Profile, error) {
	userID, err := s.client.LoggedUser(ctx, accessToken)
	if err != nil {
		return domainsession.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeProfileFetchFailed, "resolve logged user")
	}

	rec, err := s.client.User(ctx, accessToken, userID)
	if err != nil {
		return domainsession.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeProfileFetchFailed, "load user record")
	}

	return domainsession.Profile{
		UserID:      userID,
		FullName:    rec.FullName,
		FirstName:   rec.FirstName,
		DisplayName: domainsession.DisplayNameFor(rec.FullName, rec.FirstName, userID),
	}, nil
}
