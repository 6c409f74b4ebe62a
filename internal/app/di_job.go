package app

import (
	"fmt"

	jobDomain "github.com/allisson/publishq/internal/job/domain"
	jobHTTP "github.com/allisson/publishq/internal/job/http"
	jobRepository "github.com/allisson/publishq/internal/job/repository"
	jobUseCase "github.com/allisson/publishq/internal/job/usecase"
	publishDomain "github.com/allisson/publishq/internal/publish/domain"
)

// JobRepository returns the queue store for the configured driver.
func (c *Container) JobRepository() (jobUseCase.JobRepository, error) {
	var err error
	c.jobRepositoryInit.Do(func() {
		c.jobRepository, err = c.initJobRepository()
		if err != nil {
			c.setInitError("jobRepository", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("jobRepository"); storedErr != nil {
		return nil, storedErr
	}
	return c.jobRepository, nil
}

// Claimer returns the claim path workers use: the serialized claimer when the
// store cannot skip locked rows or CLAIM_STRATEGY asks for it, the repository otherwise.
func (c *Container) Claimer() (jobUseCase.Claimer, error) {
	repo, err := c.JobRepository()
	if err != nil {
		return nil, err
	}
	if !c.config.UsesSerializedClaims() {
		return repo, nil
	}
	c.claimerInit.Do(func() {
		c.claimer = jobUseCase.NewSerializedClaimer(repo, c.Locker(), c.config.RedisLockTTL, c.Logger())
	})
	return c.claimer, nil
}

// Registry returns the handler registry with every job type this service runs.
func (c *Container) Registry() (*jobUseCase.Registry, error) {
	var err error
	c.registryInit.Do(func() {
		c.registry, err = c.initRegistry()
		if err != nil {
			c.setInitError("registry", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("registry"); storedErr != nil {
		return nil, storedErr
	}
	return c.registry, nil
}

// AlertNotifier returns the redis dead-letter notifier, or nil without redis.
func (c *Container) AlertNotifier() jobUseCase.AlertNotifier {
	c.alertNotifierInit.Do(func() {
		if client := c.RedisClient(); client != nil {
			c.alertNotifier = jobUseCase.NewRedisAlertNotifier(client, "")
		}
	})
	return c.alertNotifier
}

// Processor returns the dispatcher that drives claimed jobs to their next state.
func (c *Container) Processor() (*jobUseCase.Processor, error) {
	var err error
	c.processorInit.Do(func() {
		c.processor, err = c.initProcessor()
		if err != nil {
			c.setInitError("processor", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("processor"); storedErr != nil {
		return nil, storedErr
	}
	return c.processor, nil
}

// QueueUseCase returns the queue management use case.
func (c *Container) QueueUseCase() (jobUseCase.QueueUseCase, error) {
	var err error
	c.queueUseCaseInit.Do(func() {
		c.queueUseCase, err = c.initQueueUseCase()
		if err != nil {
			c.setInitError("queueUseCase", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("queueUseCase"); storedErr != nil {
		return nil, storedErr
	}
	return c.queueUseCase, nil
}

// Sweeper returns the visibility-timeout sweeper.
func (c *Container) Sweeper() (*jobUseCase.Sweeper, error) {
	var err error
	c.sweeperInit.Do(func() {
		c.sweeper, err = c.initSweeper()
		if err != nil {
			c.setInitError("sweeper", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("sweeper"); storedErr != nil {
		return nil, storedErr
	}
	return c.sweeper, nil
}

// Worker builds a worker for queue. Concurrency below 1 uses WORKER_CONCURRENCY.
func (c *Container) Worker(queue string, concurrency int) (*jobUseCase.Worker, error) {
	processor, err := c.Processor()
	if err != nil {
		return nil, fmt.Errorf("failed to get processor for worker: %w", err)
	}
	if queue == "" {
		queue = c.config.WorkerQueue
	}
	if concurrency < 1 {
		concurrency = c.config.WorkerConcurrency
	}
	return jobUseCase.NewWorker(jobUseCase.WorkerConfig{
		Queue:        queue,
		Concurrency:  concurrency,
		PollInterval: c.config.WorkerPollInterval,
	}, processor, c.Logger()), nil
}

// JobHandler returns the HTTP handler for queue management.
func (c *Container) JobHandler() (*jobHTTP.JobHandler, error) {
	var err error
	c.jobHandlerInit.Do(func() {
		c.jobHandler, err = c.initJobHandler()
		if err != nil {
			c.setInitError("jobHandler", err)
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr := c.initError("jobHandler"); storedErr != nil {
		return nil, storedErr
	}
	return c.jobHandler, nil
}

func (c *Container) initJobRepository() (jobUseCase.JobRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for job repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return jobRepository.NewMySQLJobRepository(db, c.config.DBSkipLocked), nil
	case "postgres":
		return jobRepository.NewPostgreSQLJobRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initRegistry() (*jobUseCase.Registry, error) {
	publishJobHandler, err := c.PublishJobHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get publish job handler for registry: %w", err)
	}

	registry := jobUseCase.NewRegistry()
	registry.Register(jobUseCase.EchoJobType, jobUseCase.EchoHandler())
	registry.Register(publishDomain.JobType, publishJobHandler)
	return registry, nil
}

func (c *Container) initProcessor() (*jobUseCase.Processor, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for processor: %w", err)
	}

	repo, err := c.JobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get job repository for processor: %w", err)
	}

	claimer, err := c.Claimer()
	if err != nil {
		return nil, fmt.Errorf("failed to get claimer for processor: %w", err)
	}

	registry, err := c.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry for processor: %w", err)
	}

	queueMetrics, err := c.QueueMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue metrics for processor: %w", err)
	}

	config := jobUseCase.ProcessorConfig{
		MaxRetries: c.config.WorkerMaxRetries,
		Backoff: jobDomain.BackoffPolicy{
			Base:       c.config.WorkerBackoffBase,
			Multiplier: c.config.WorkerBackoffMultiplier,
			Max:        c.config.WorkerBackoffMax,
		},
		DeadLetterThreshold: c.config.DeadLetterAlertThreshold,
	}

	return jobUseCase.NewProcessor(
		config,
		txManager,
		repo,
		claimer,
		registry,
		c.AlertNotifier(),
		queueMetrics,
		c.Logger(),
	), nil
}

func (c *Container) initQueueUseCase() (jobUseCase.QueueUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for queue use case: %w", err)
	}

	repo, err := c.JobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get job repository for queue use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for queue use case: %w", err)
	}

	return jobUseCase.NewQueueUseCaseWithMetrics(jobUseCase.NewQueueUseCase(txManager, repo), businessMetrics), nil
}

func (c *Container) initSweeper() (*jobUseCase.Sweeper, error) {
	repo, err := c.JobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get job repository for sweeper: %w", err)
	}

	queueMetrics, err := c.QueueMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue metrics for sweeper: %w", err)
	}

	return jobUseCase.NewSweeper(jobUseCase.SweeperConfig{
		Interval:          c.config.WorkerSweepInterval,
		VisibilityTimeout: c.config.WorkerVisibilityTimeout,
		LockTTL:           c.config.RedisLockTTL,
	}, repo, c.Locker(), queueMetrics, c.Logger()), nil
}

func (c *Container) initJobHandler() (*jobHTTP.JobHandler, error) {
	queueUseCase, err := c.QueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue use case for job handler: %w", err)
	}

	processor, err := c.Processor()
	if err != nil {
		return nil, fmt.Errorf("failed to get processor for job handler: %w", err)
	}

	return jobHTTP.NewJobHandler(queueUseCase, processor, c.Logger()), nil
}
