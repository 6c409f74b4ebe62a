package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/auth"
	publishService "github.com/allisson/publishq/internal/publish/service"
)

func TestRunHashAPIToken(t *testing.T) {
	logger := slog.Default()

	t.Run("given-token", func(t *testing.T) {
		var out bytes.Buffer
		err := RunHashAPIToken(logger, &out, "s3cret", "text")
		require.NoError(t, err)

		line := strings.TrimSpace(out.String())
		require.True(t, strings.HasPrefix(line, "API_TOKEN_HASH="))
		assert.NotContains(t, out.String(), "Token:")

		verifier := auth.NewHashedTokenVerifier(strings.TrimPrefix(line, "API_TOKEN_HASH="))
		assert.True(t, verifier.Verify("s3cret"))
	})

	t.Run("generated-token-json", func(t *testing.T) {
		var out bytes.Buffer
		err := RunHashAPIToken(logger, &out, "", "json")
		require.NoError(t, err)

		assert.Contains(t, out.String(), `"token": "`)
		assert.Contains(t, out.String(), `"hash": "$argon2id$`)
	})

	t.Run("invalid-format", func(t *testing.T) {
		err := RunHashAPIToken(logger, &bytes.Buffer{}, "s3cret", "xml")
		require.Error(t, err)
	})
}

func TestRunSealAccountToken(t *testing.T) {
	ctx := context.Background()
	keyURI := "base64key://" + base64.URLEncoding.EncodeToString(make([]byte, 32))

	keeper, err := publishService.OpenKeeper(ctx, keyURI)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, keeper.Close())
	}()

	t.Run("with-account", func(t *testing.T) {
		var out bytes.Buffer
		err := RunSealAccountToken(ctx, keeper, &out, "tiktok:brand", "access-token")
		require.NoError(t, err)

		pairs := strings.TrimSpace(out.String())
		require.True(t, strings.HasPrefix(pairs, "tiktok:brand="))

		inner, err := publishService.NewStaticAccountResolver(pairs)
		require.NoError(t, err)
		creds, err := publishService.NewSealedAccountResolver(inner, keeper).Resolve(ctx, "tiktok", "brand")
		require.NoError(t, err)
		assert.Equal(t, "access-token", creds.AccessToken)
	})

	t.Run("bare-value", func(t *testing.T) {
		var out bytes.Buffer
		err := RunSealAccountToken(ctx, keeper, &out, "", "access-token")
		require.NoError(t, err)
		_, err = base64.StdEncoding.DecodeString(strings.TrimSpace(out.String()))
		assert.NoError(t, err)
	})

	t.Run("empty-token", func(t *testing.T) {
		err := RunSealAccountToken(ctx, keeper, &bytes.Buffer{}, "brand", "")
		require.Error(t, err)
	})
}
