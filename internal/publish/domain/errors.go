package domain

import (
	apperrors "github.com/allisson/publishq/internal/errors"
)

var (
	// ErrPublishRequestNotFound indicates the publish request does not exist.
	ErrPublishRequestNotFound = apperrors.Wrap(apperrors.ErrNotFound, "publish request not found")

	// ErrPublishRequestResolved indicates a transition attempted on a request that already moved on.
	ErrPublishRequestResolved = apperrors.Wrap(apperrors.ErrConflict, "publish request already resolved")

	// ErrExternalPostIDTaken indicates another request of the platform already holds the post id.
	ErrExternalPostIDTaken = apperrors.Wrap(apperrors.ErrConflict, "external post id already recorded")

	// ErrInvalidPublishRequest indicates create input that fails validation.
	ErrInvalidPublishRequest = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid publish request")

	// ErrUnsupportedPlatform indicates no client is registered for the platform.
	ErrUnsupportedPlatform = apperrors.Wrap(apperrors.ErrInvalidInput, "unsupported platform")

	// ErrAccountNotFound indicates no credentials are configured for the account.
	ErrAccountNotFound = apperrors.Wrap(apperrors.ErrNotFound, "platform account not found")

	// ErrInvalidAccountToken indicates a sealed account token that cannot be decoded.
	ErrInvalidAccountToken = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid sealed account token")

	// ErrInvalidSignature indicates a callback whose signature does not verify.
	ErrInvalidSignature = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid callback signature")

	// ErrInvalidCallback indicates a callback body that cannot be reconciled.
	ErrInvalidCallback = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid callback event")
)
