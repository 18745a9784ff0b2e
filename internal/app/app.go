// Package app はアプリケーションの起動と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/attendance"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/cache"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/config"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/database"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/handler"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/logger"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/mailer"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/metrics"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/middleware"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/provider"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/queue"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/repository"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/scheduler"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/user"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.AppEnv)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("env", cfg.AppEnv),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// core はserveとworkerで共有する下回りの依存関係。
type core struct {
	db        *sql.DB
	redis     *redis.Client
	cipher    *crypto.Cipher
	endpoints *provider.Endpoints
	cache     *cache.Store
	broker    *queue.Broker
	userRepo  *repository.PostgresUserRepo
	dataRepo  *repository.PostgresAttendanceDataRepo
	api       *provider.Client
	registry  *prometheus.Registry
	collector *metrics.Collector
}

// setupCore はDB・Redis・暗号・プロバイダクライアントなど、
// serveとworkerの両方で必要になる依存関係を構築する。
func setupCore(cfg *config.Config) (*core, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("redis connection established")

	cipher, err := crypto.NewCipher(cfg.SecretKey, cfg.InitVectorKey)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	endpoints, err := provider.NewEndpoints(cipher, provider.EncryptedEndpoints{
		InfotechBaseURL:          cfg.InfotechAPIBaseURL,
		AttendanceBaseURL:        cfg.AttendanceAPIBaseURL,
		ClockInPath:              cfg.ClockInPath,
		GetUserInfoPath:          cfg.GetUserInfoPath,
		GetAttendanceHistoryPath: cfg.GetAttendanceHistoryPath,
	})
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("failed to decrypt provider endpoints: %w", err)
	}

	registry := prometheus.NewRegistry()

	return &core{
		db:        db,
		redis:     redisClient,
		cipher:    cipher,
		endpoints: endpoints,
		cache:     cache.NewStore(redisClient),
		broker:    queue.NewBroker(redisClient),
		userRepo:  repository.NewPostgresUserRepo(db),
		dataRepo:  repository.NewPostgresAttendanceDataRepo(db),
		api:       provider.NewClient(provider.NewSafeHTTPClient(cfg.ProviderTimeout), cipher, endpoints, slog.Default()),
		registry:  registry,
		collector: metrics.NewCollector(registry),
	}, nil
}

// close は保持しているコネクションを解放する。
func (c *core) close() {
	c.redis.Close()
	c.db.Close()
}

// attendanceService はcoreから打刻サービスを組み立てる。
func (c *core) attendanceService() *attendance.Service {
	return attendance.NewService(
		c.userRepo, c.dataRepo, c.cache, c.broker, c.api,
		c.cipher, c.endpoints, c.collector, slog.Default(),
	)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	c, err := setupCore(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	attendanceService := c.attendanceService()
	userService := user.NewService(
		c.userRepo, attendanceService, c.cache, c.api,
		c.cipher, c.endpoints, slog.Default(),
	)

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral)),
		Cipher:            c.cipher,
		FrontendHost:      cfg.FrontendHost,
		EnforceAppToken:   cfg.EnforceAppToken,

		AttendanceService: attendanceService,
		UserService:       userService,

		MetricsRegistry: c.registry,
	}

	router := middleware.NewLoggingMiddleware(slog.Default())(handler.NewRouter(deps))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// cronスケジューラと打刻・通知レーンのキューコンシューマを起動し、
// メトリクス公開用の軽量HTTPサーバーを立てる。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	c, err := setupCore(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	attendanceService := c.attendanceService()

	mailClient, err := mailer.NewClient(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	mailService := mailer.NewService(mailClient, cfg.MailFrom, c.collector, slog.Default())

	sched, err := scheduler.New(attendanceService, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	consumerCfg := queue.ConsumerConfig{
		PollInterval:   cfg.QueuePollInterval,
		LeaseTime:      cfg.QueueLeaseTime,
		BatchSize:      cfg.QueueBatchSize,
		MaxConcurrency: cfg.QueueMaxConcurrency,
	}
	clockConsumer := queue.NewConsumer(c.broker, queue.LaneAttendance, attendanceService.HandleClockJob, slog.Default(), consumerCfg)
	mailConsumer := queue.NewConsumer(c.broker, queue.LaneMail, mailService.HandleMailJob, slog.Default(), consumerCfg)

	// Prometheusスクレイプ用の軽量サーバー
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(c.registry))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	metricsServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker metrics server starting", slog.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("cron_entries", sched.EntryCount()),
		slog.Int("max_concurrency", consumerCfg.MaxConcurrency),
	)

	sched.Start()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		clockConsumer.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		mailConsumer.Start(ctx)
	}()

	<-ctx.Done()

	// 実行中のcronジョブの完了を待つ
	<-sched.Stop().Done()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
