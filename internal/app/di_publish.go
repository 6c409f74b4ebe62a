package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	publishHTTP "github.com/allisson/publishq/internal/publish/http"
	publishRepository "github.com/allisson/publishq/internal/publish/repository"
	publishService "github.com/allisson/publishq/internal/publish/service"
	publishUseCase "github.com/allisson/publishq/internal/publish/usecase"
)

// PublishRequestRepository returns the publish request store for the configured driver.
func (c *Container) PublishRequestRepository() (publishUseCase.PublishRequestRepository, error) {
	var err error
	c.publishRequestRepositoryInit.Do(func() {
		c.publishRequestRepository, err = c.initPublishRequestRepository()
		if err != nil {
			c.setInitError("publishRequestRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("publishRequestRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.publishRequestRepository, nil
}

// PlatformRegistry returns a client per configured platform. Platforms go
// through the HTTP gateway when PLATFORM_GATEWAY_URL is set and are stubbed otherwise.
func (c *Container) PlatformRegistry() *publishService.PlatformRegistry {
	c.platformRegistryInit.Do(func() {
		logger := c.Logger()
		registry := publishService.NewPlatformRegistry()

		for _, platform := range publishService.ParseList(c.config.Platforms) {
			if c.config.PlatformGatewayURL == "" {
				registry.Register(platform, publishService.NewStubPlatformClient(platform))
				continue
			}
			breaker := publishService.NewCircuitBreaker(
				platform,
				c.config.PlatformBreakerThreshold,
				c.config.PlatformBreakerOpenFor,
				logger,
			)
			registry.Register(platform, publishService.NewHTTPPlatformClient(
				platform,
				c.config.PlatformGatewayURL,
				c.config.PlatformTimeout,
				breaker,
				logger,
			))
		}

		if c.config.PlatformGatewayURL == "" {
			logger.Warn("PLATFORM_GATEWAY_URL is empty, platforms use stub clients",
				slog.Any("platforms", registry.Platforms()))
		}
		c.platformRegistry = registry
	})
	return c.platformRegistry
}

// AccountResolver returns the credentials lookup built from PLATFORM_ACCOUNT_TOKENS.
// Tokens are opened with the KMS keeper when PLATFORM_TOKENS_KMS_KEY_URI is set.
func (c *Container) AccountResolver() (publishService.AccountResolver, error) {
	var err error
	c.accountResolverInit.Do(func() {
		c.accountResolver, err = c.initAccountResolver()
		if err != nil {
			c.setInitError("accountResolver", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("accountResolver"); storedErr != nil {
		return nil, storedErr
	}
	return c.accountResolver, nil
}

// TokenKeeper returns the KMS keeper for account tokens. It fails when
// PLATFORM_TOKENS_KMS_KEY_URI is not set.
func (c *Container) TokenKeeper(ctx context.Context) (publishService.Keeper, error) {
	var err error
	c.tokenKeeperInit.Do(func() {
		if c.config.PlatformTokensKMSKeyURI == "" {
			err = errors.New("PLATFORM_TOKENS_KMS_KEY_URI is not set")
		} else {
			c.tokenKeeper, err = publishService.OpenKeeper(ctx, c.config.PlatformTokensKMSKeyURI)
		}
		if err != nil {
			c.setInitError("tokenKeeper", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("tokenKeeper"); storedErr != nil {
		return nil, storedErr
	}
	return c.tokenKeeper, nil
}

// SignatureVerifier returns the callback signature verifier, or nil when
// CALLBACK_SIGNING_SECRET is empty.
func (c *Container) SignatureVerifier() publishService.SignatureVerifier {
	c.signatureVerifierInit.Do(func() {
		if c.config.CallbackSigningSecret == "" {
			c.Logger().Warn("CALLBACK_SIGNING_SECRET is empty, callbacks are not authenticated")
			return
		}
		c.signatureVerifier = publishService.NewSignatureVerifier([]byte(c.config.CallbackSigningSecret))
	})
	return c.signatureVerifier
}

// PublishUseCase returns the publish request use case.
func (c *Container) PublishUseCase() (publishUseCase.PublishUseCase, error) {
	var err error
	c.publishUseCaseInit.Do(func() {
		c.publishUseCase, err = c.initPublishUseCase()
		if err != nil {
			c.setInitError("publishUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("publishUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.publishUseCase, nil
}

// PublishJobHandler returns the publish.post job handler.
func (c *Container) PublishJobHandler() (*publishUseCase.PublishHandler, error) {
	var err error
	c.publishJobHandlerInit.Do(func() {
		c.publishJobHandler, err = c.initPublishJobHandler()
		if err != nil {
			c.setInitError("publishJobHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("publishJobHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.publishJobHandler, nil
}

// Reconciler returns the reconciler that runs the timeout sweep loop.
func (c *Container) Reconciler() (*publishUseCase.Reconciler, error) {
	var err error
	c.reconcilerInit.Do(func() {
		c.reconciler, err = c.initReconciler()
		if err != nil {
			c.setInitError("reconciler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("reconciler"); storedErr != nil {
		return nil, storedErr
	}
	return c.reconciler, nil
}

// ReconcileUseCase returns the reconciler decorated with business metrics.
func (c *Container) ReconcileUseCase() (publishUseCase.ReconcileUseCase, error) {
	var err error
	c.reconcileUseCaseInit.Do(func() {
		c.reconcileUseCase, err = c.initReconcileUseCase()
		if err != nil {
			c.setInitError("reconcileUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("reconcileUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.reconcileUseCase, nil
}

// PublishHandler returns the HTTP handler for publish requests.
func (c *Container) PublishHandler() (*publishHTTP.PublishHandler, error) {
	var err error
	c.publishHandlerInit.Do(func() {
		var useCase publishUseCase.PublishUseCase
		useCase, err = c.PublishUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get publish use case for publish handler: %w", err)
			c.setInitError("publishHandler", err)
			return
		}
		c.publishHandler = publishHTTP.NewPublishHandler(useCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("publishHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.publishHandler, nil
}

// CallbackHandler returns the HTTP handler for platform callbacks.
func (c *Container) CallbackHandler() (*publishHTTP.CallbackHandler, error) {
	var err error
	c.callbackHandlerInit.Do(func() {
		var useCase publishUseCase.ReconcileUseCase
		useCase, err = c.ReconcileUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get reconcile use case for callback handler: %w", err)
			c.setInitError("callbackHandler", err)
			return
		}
		c.callbackHandler = publishHTTP.NewCallbackHandler(useCase, c.SignatureVerifier(), c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("callbackHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.callbackHandler, nil
}

func (c *Container) initPublishRequestRepository() (publishUseCase.PublishRequestRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for publish request repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return publishRepository.NewMySQLPublishRequestRepository(db), nil
	case "postgres":
		return publishRepository.NewPostgreSQLPublishRequestRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAccountResolver() (publishService.AccountResolver, error) {
	resolver, err := publishService.NewStaticAccountResolver(c.config.PlatformAccountTokens)
	if err != nil {
		return nil, fmt.Errorf("invalid PLATFORM_ACCOUNT_TOKENS: %w", err)
	}
	if c.config.PlatformTokensKMSKeyURI == "" {
		return resolver, nil
	}

	keeper, err := c.TokenKeeper(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to open keeper for account tokens: %w", err)
	}
	return publishService.NewSealedAccountResolver(resolver, keeper), nil
}

func (c *Container) initPublishUseCase() (publishUseCase.PublishUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for publish use case: %w", err)
	}

	repo, err := c.PublishRequestRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get publish request repository for publish use case: %w", err)
	}

	queueUseCase, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for publish use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for publish use case: %w", err)
	}

	useCase := publishUseCase.NewPublishUseCase(txManager, repo, queueUseCase, c.PlatformRegistry())
	return publishUseCase.NewPublishUseCaseWithMetrics(useCase, businessMetrics), nil
}

func (c *Container) initPublishJobHandler() (*publishUseCase.PublishHandler, error) {
	repo, err := c.PublishRequestRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get publish request repository for publish job handler: %w", err)
	}

	accounts, err := c.AccountResolver()
	if err != nil {
		return nil, err
	}

	return publishUseCase.NewPublishHandler(repo, accounts, c.PlatformRegistry(), c.Logger()), nil
}

func (c *Container) initReconciler() (*publishUseCase.Reconciler, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for reconciler: %w", err)
	}

	repo, err := c.PublishRequestRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get publish request repository for reconciler: %w", err)
	}

	queueMetrics, err := c.QueueMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue metrics for reconciler: %w", err)
	}

	return publishUseCase.NewReconciler(publishUseCase.ReconcilerConfig{
		Timeout:  c.config.ReconcileTimeout,
		Interval: c.config.ReconcileInterval,
		LockTTL:  c.config.RedisLockTTL,
	}, txManager, repo, c.Locker(), queueMetrics, c.Logger()), nil
}

func (c *Container) initReconcileUseCase() (publishUseCase.ReconcileUseCase, error) {
	reconciler, err := c.Reconciler()
	if err != nil {
		return nil, err
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for reconcile use case: %w", err)
	}

	return publishUseCase.NewReconcileUseCaseWithMetrics(reconciler, businessMetrics), nil
}
