package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/techagentng/imagegallery/config"
	errs "github.com/techagentng/imagegallery/errors"
	"github.com/techagentng/imagegallery/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type GormDB struct {
	DB *gorm.DB
}

func GetDB(c *config.Config, log *zap.Logger) (*GormDB, error) {
	gormDB := &GormDB{}
	if err := gormDB.Init(c, log); err != nil {
		return nil, err
	}
	return gormDB, nil
}

func (g *GormDB) Init(c *config.Config, log *zap.Logger) error {
	db, err := getPostgresDB(c, log)
	if err != nil {
		return err
	}
	g.DB = db

	if err := migrate(g.DB); err != nil {
		return fmt.Errorf("unable to run migrations: %w", err)
	}
	return nil
}

func getPostgresDB(c *config.Config, log *zap.Logger) (*gorm.DB, error) {
	log.Info("connecting to postgres",
		zap.String("host", c.PostgresHost),
		zap.Int("port", c.PostgresPort),
		zap.String("db", c.PostgresDB))
	postgresDSN := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d TimeZone=UTC",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort)

	gormConfig := &gorm.Config{}
	if !c.IsProduction() {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		DSN: postgresDSN,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	return gormDB, nil
}

func migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Post{},
		&models.Reaction{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("migrations error: %v", err)
	}
	return nil
}

// GormStore is the postgres backed Store. Transactions run at SERIALIZABLE and
// are retried on serialization failures and deadlocks.
type GormStore struct {
	DB          *gorm.DB
	maxAttempts int
	logger      *zap.Logger
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *GormDB, maxAttempts int, logger *zap.Logger) *GormStore {
	return &GormStore{DB: db.DB, maxAttempts: maxAttempts, logger: logger}
}

func (g *GormStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return retryTransaction(ctx, g.logger, g.maxAttempts, isSerializationFailure, func(ctx context.Context) error {
		return g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, &gormTx{DB: tx})
		}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	})
}

func (g *GormStore) Close() error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormTx struct {
	DB *gorm.DB
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01": // deadlock_detected
			return true
		}
	}
	return false
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrapf(errs.ErrNotFound, format, args...)
	}
	return errors.Wrapf(err, format, args...)
}
