package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/allisson/publishq/internal/auth"
	publishService "github.com/allisson/publishq/internal/publish/service"
)

// RunHashAPIToken prints an Argon2id hash for API_TOKEN_HASH. When token is
// empty a random one is generated and printed once next to its hash.
func RunHashAPIToken(logger *slog.Logger, writer io.Writer, token string, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	generated := token == ""
	if generated {
		var err error
		token, err = auth.GenerateToken()
		if err != nil {
			return err
		}
	}

	hash, err := auth.HashToken(token)
	if err != nil {
		return err
	}
	logger.Info("api token hashed", slog.Bool("generated", generated))

	if format == "json" {
		out := map[string]string{"hash": hash}
		if generated {
			out["token"] = token
		}
		return outputJSON(out, writer)
	}

	if generated {
		_, _ = fmt.Fprintf(writer, "Token: %s\n", token)
	}
	_, _ = fmt.Fprintf(writer, "API_TOKEN_HASH=%s\n", hash)
	if generated {
		_, _ = fmt.Fprintln(writer, "\nIMPORTANT: The token is shown only once. Store it securely.")
	}
	return nil
}

// RunSealAccountToken encrypts a platform access token with the KMS keeper and
// prints the value to use in PLATFORM_ACCOUNT_TOKENS.
func RunSealAccountToken(
	ctx context.Context,
	keeper publishService.Keeper,
	writer io.Writer,
	accountRef, token string,
) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}

	sealed, err := publishService.SealToken(ctx, keeper, token)
	if err != nil {
		return err
	}

	if accountRef != "" {
		_, _ = fmt.Fprintf(writer, "%s=%s\n", accountRef, sealed)
		return nil
	}
	_, _ = fmt.Fprintln(writer, sealed)
	return nil
}
