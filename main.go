package main

import (
	"context"
	"log"
	"time"

	firebase "firebase.google.com/go"
	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/redis/go-redis/v9"
	"github.com/techagentng/imagegallery/config"
	"github.com/techagentng/imagegallery/db"
	"github.com/techagentng/imagegallery/server"
	"github.com/techagentng/imagegallery/services"
	"github.com/techagentng/imagegallery/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/api/option"
)

func newLogger(conf *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}
	zapConfig := zap.NewDevelopmentConfig()
	if conf.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	return zapConfig.Build()
}

func initFirebase(ctx context.Context, conf *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if conf.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.FirebaseCredentialsFile))
	}
	return firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     conf.FirebaseProjectID,
		StorageBucket: conf.FirebaseStorageBucket,
	}, opts...)
}

func newStore(ctx context.Context, conf *config.Config, app *firebase.App, logger *zap.Logger) (db.Store, error) {
	switch conf.StoreBackend {
	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		return db.NewFirestoreStore(client, conf.TxMaxAttempts, logger), nil
	case config.StorePostgres:
		gormDB, err := db.GetDB(conf, logger)
		if err != nil {
			return nil, err
		}
		return db.NewGormStore(gormDB, conf.TxMaxAttempts, logger), nil
	default:
		return db.NewMemoryStore(conf.TxMaxAttempts, logger), nil
	}
}

func newBinaryStore(ctx context.Context, conf *config.Config, app *firebase.App) (storage.BinaryStore, error) {
	switch conf.BinaryBackend {
	case config.BinaryS3:
		return storage.NewS3Store(ctx, conf)
	case config.BinaryFirebase:
		client, err := app.Storage(ctx)
		if err != nil {
			return nil, err
		}
		bucket, err := client.Bucket(conf.FirebaseStorageBucket)
		if err != nil {
			return nil, err
		}
		return storage.NewFirebaseStore(bucket, conf.FirebaseStorageBucket), nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

func newVerifier(ctx context.Context, conf *config.Config, app *firebase.App) (server.IdentityVerifier, error) {
	if conf.AuthProvider == config.AuthFirebase {
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, err
		}
		return server.FirebaseVerifier{Client: client}, nil
	}
	return server.JWTVerifier{Secret: conf.JWTSecret}, nil
}

// newRateLimitStore shares rate limit counters through redis when one is
// configured, so several replicas enforce a single budget.
func newRateLimitStore(conf *config.Config, logger *zap.Logger) ratelimit.Store {
	if conf.RedisAddr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: conf.RedisAddr, Password: conf.RedisPassword})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}
	return ratelimit.RedisStore(&ratelimit.RedisOptions{
		RedisClient: rdb,
		Rate:        time.Minute,
		Limit:       conf.RateLimitPerMinute,
	})
}

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := newLogger(conf)
	if err != nil {
		log.Fatalf("error initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	var app *firebase.App
	if conf.UsesFirebase() {
		app, err = initFirebase(ctx, conf)
		if err != nil {
			logger.Fatal("error initializing Firebase app", zap.Error(err))
		}
		logger.Info("Firebase initialized", zap.String("project", conf.FirebaseProjectID))
	}

	store, err := newStore(ctx, conf, app, logger)
	if err != nil {
		logger.Fatal("error opening store", zap.String("backend", conf.StoreBackend), zap.Error(err))
	}
	defer store.Close()

	files, err := newBinaryStore(ctx, conf, app)
	if err != nil {
		logger.Fatal("error opening binary store", zap.String("backend", conf.BinaryBackend), zap.Error(err))
	}

	verifier, err := newVerifier(ctx, conf, app)
	if err != nil {
		logger.Fatal("error initializing auth", zap.String("provider", conf.AuthProvider), zap.Error(err))
	}

	mediaService := services.NewMediaService(conf)
	s := &server.Server{
		Config:         conf,
		Logger:         logger,
		Verifier:       verifier,
		LikeService:    services.NewLikeService(store, logger),
		CommentService: services.NewCommentService(store, logger),
		PostService:    services.NewPostService(store, files, mediaService, logger),
		GalleryService: services.NewGalleryService(store, logger),
		RateLimitStore: newRateLimitStore(conf, logger),
	}

	s.Start()
}
