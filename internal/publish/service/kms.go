package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	// KMS provider drivers selectable through the key URI scheme.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"

	apperrors "github.com/allisson/publishq/internal/errors"
	jobDomain "github.com/allisson/publishq/internal/job/domain"
	"github.com/allisson/publishq/internal/publish/domain"
)

// Keeper seals and opens account tokens. *secrets.Keeper implements it.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// OpenKeeper opens the KMS key at keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func OpenKeeper(ctx context.Context, keyURI string) (Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// SealToken encrypts token with keeper and returns the value to place in
// PLATFORM_ACCOUNT_TOKENS.
func SealToken(ctx context.Context, keeper Keeper, token string) (string, error) {
	ciphertext, err := keeper.Encrypt(ctx, []byte(token))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to seal account token")
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// SealedAccountResolver opens tokens that were sealed with SealToken. A token
// that is not valid base64 is a permanent failure. Decryption errors are left
// unclassified, so the job is retried.
type SealedAccountResolver struct {
	inner  AccountResolver
	keeper Keeper
}

// NewSealedAccountResolver wraps inner so that every resolved token is decrypted.
func NewSealedAccountResolver(inner AccountResolver, keeper Keeper) *SealedAccountResolver {
	return &SealedAccountResolver{inner: inner, keeper: keeper}
}

// Resolve implements AccountResolver.
func (r *SealedAccountResolver) Resolve(ctx context.Context, platform, accountRef string) (*Credentials, error) {
	creds, err := r.inner.Resolve(ctx, platform, accountRef)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(creds.AccessToken)
	if err != nil {
		return nil, jobDomain.NewPermanentError(
			apperrors.Wrapf(domain.ErrInvalidAccountToken, "account %q", accountRef),
		)
	}

	plaintext, err := r.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to open token for account %q", accountRef)
	}

	return &Credentials{AccountRef: creds.AccountRef, AccessToken: string(plaintext)}, nil
}
