package cmd

import (
	"context"
	"fmt"

	"rallyrent/config"
	"rallyrent/database"
	"rallyrent/database/repository"
	"rallyrent/services/admin"
	"rallyrent/services/credits"
	"rallyrent/services/notification"
	"rallyrent/services/timezone"
	"rallyrent/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// app holds the clients and services every command shares. Clients are
// built here and injected; nothing below cmd opens its own connections.
type app struct {
	cfg    *config.Config
	policy config.Policy
	logger *zap.Logger

	mongo  *mongo.Client
	repos  *repository.Repositories
	tx     database.Transactor
	tz     *timezone.Converter
	ledger *credits.Ledger

	queueRedis *redis.Client
	queue      *asynq.Client
	notifier   notification.Notifier
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	client, err := database.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	repos, err := repository.NewMongoRepositories(client.Database(cfg.DatabaseName))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	a := &app{
		cfg:      cfg,
		policy:   policy,
		logger:   logger,
		mongo:    client,
		repos:    repos,
		tx:       database.NewMongoTransactor(client),
		tz:       timezone.NewConverter(policy.Location),
		notifier: notification.Nop{},
	}
	a.ledger = credits.NewLedger(repos.Credits, nil, logger)
	return a, nil
}

// connectQueue wires the asynq producer. When required is false a broker
// outage degrades to dropping notifications instead of failing.
func (a *app) connectQueue(ctx context.Context, required bool) error {
	client, err := utils.NewQueueRedisClient(ctx, a.cfg)
	if err != nil {
		if required {
			return err
		}
		a.logger.Warn("Notification queue unavailable, notifications will be skipped", zap.Error(err))
		return nil
	}
	a.queueRedis = client
	a.queue = asynq.NewClient(a.redisOpt())
	a.notifier = notification.NewQueueNotifier(a.queue, a.logger)
	return nil
}

func (a *app) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisQueueDB,
	}
}

func (a *app) adminService() *admin.DefaultAdminService {
	return &admin.DefaultAdminService{
		Repos:           *a.repos,
		Tx:              a.tx,
		Ledger:          a.ledger,
		Notifier:        a.notifier,
		TZ:              a.tz,
		DefaultValidity: a.cfg.CreditValidity(),
		Logger:          a.logger,
	}
}

func (a *app) Close() {
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.queueRedis != nil {
		_ = a.queueRedis.Close()
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), utils.StoreTimeout)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
