package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/publishq/internal/job/domain"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_DispatchesByType", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterFunc("system.echo", EchoHandler())

		out, err := registry.Dispatch(ctx, &domain.Job{Type: "system.echo", Payload: json.RawMessage(`[1]`)})

		require.NoError(t, err)
		assert.JSONEq(t, `[1]`, string(out))
	})

	t.Run("Success_LastRegistrationWins", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterFunc("t", func(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
			return json.RawMessage(`1`), nil
		})
		registry.RegisterFunc("t", func(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
			return json.RawMessage(`2`), nil
		})

		out, err := registry.Dispatch(ctx, &domain.Job{Type: "t"})

		require.NoError(t, err)
		assert.Equal(t, "2", string(out))
	})

	t.Run("Success_TypesSorted", func(t *testing.T) {
		registry := NewRegistry()
		registry.RegisterFunc("b", EchoHandler())
		registry.RegisterFunc("a", EchoHandler())

		assert.Equal(t, []string{"a", "b"}, registry.Types())
	})

	t.Run("Error_UnknownType", func(t *testing.T) {
		registry := NewRegistry()

		_, err := registry.Dispatch(ctx, &domain.Job{Type: "missing"})

		var unknown *domain.UnknownTypeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "missing", unknown.Type)
		assert.False(t, domain.IsRetryable(err))
	})
}
