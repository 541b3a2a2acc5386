// Package app はtaskmasterの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/taskmaster/internal/config"
	"github.com/hitoshi/taskmaster/internal/database"
	"github.com/hitoshi/taskmaster/internal/handler"
	"github.com/hitoshi/taskmaster/internal/kvstore"
	"github.com/hitoshi/taskmaster/internal/logger"
	"github.com/hitoshi/taskmaster/internal/metrics"
	"github.com/hitoshi/taskmaster/internal/middleware"
	"github.com/hitoshi/taskmaster/internal/repository"
	"github.com/hitoshi/taskmaster/internal/worker/cleanup"
	"github.com/hitoshi/taskmaster/internal/workspace"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップ
	logger.SetupDefault(w, cfg.SlogLevel())

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
		slog.String("storage_backend", cfg.StorageBackend),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// Server はserveモードの依存関係一式を保持する。
type Server struct {
	Handler  http.Handler
	Registry *workspace.Registry

	sweeper     *workspace.Sweeper
	cleanup     *cleanup.CleanupJob
	rateLimiter *middleware.RateLimiter
	closeStore  func() error
}

// NewServer は設定に従ってストレージを開き、全依存関係をワイヤリングする。
// 返されたServerは使用後に Close すること。
func NewServer(cfg *config.Config, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. ストレージ
	st, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 3. クライアントごとのワークスペース
	registry := workspace.NewRegistry(workspace.Options{
		Store:             st.store,
		ReseedOnCorrupt:   cfg.ReseedOnCorrupt,
		RequireValidEmail: cfg.AuthRequireValidEmail,
		IdleTTL:           cfg.WorkspaceIdleTTL,
		Metrics:           collector,
		Logger:            log,
	})

	// 4. ルーター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral), log,
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		StatusRecorder:    collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		ClientCookie: middleware.ClientCookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		RateLimiter:    rateLimiter,
		Sessions:       handler.NewWorkspaceAdapter(registry),
		HealthChecker:  st.checker,
		MetricsHandler: metrics.Handler(reg),
	})

	return &Server{
		Handler:     router,
		Registry:    registry,
		sweeper:     workspace.NewSweeper(registry, log),
		cleanup:     st.cleanup,
		rateLimiter: rateLimiter,
		closeStore:  st.close,
	}, nil
}

// StartSweeper はアイドルWorkspaceの定期破棄をバックグラウンドで開始する。
// ctxがキャンセルされると停止する。
func (s *Server) StartSweeper(ctx context.Context, interval time.Duration) {
	go s.sweeper.Start(ctx, interval)
}

// StartCleanup は保持期間を過ぎた保存データの定期削除をバックグラウンドで開始する。
// クリーンアップが無効（メモリバックエンドまたは保持期間0）の場合はfalseを返す。
func (s *Server) StartCleanup(ctx context.Context, interval time.Duration) bool {
	if s.cleanup == nil {
		return false
	}
	go s.cleanup.Start(ctx, interval)
	return true
}

// Close はレートリミッターを停止し、ストレージ接続を閉じる。
func (s *Server) Close() error {
	s.rateLimiter.Stop()
	if s.closeStore == nil {
		return nil
	}
	return s.closeStore()
}

// storage はopenStoreが開いたバックエンド一式。
type storage struct {
	store   kvstore.Store
	checker handler.HealthChecker
	cleanup *cleanup.CleanupJob
	close   func() error
}

// openStore は設定されたバックエンドのkvstore.Storeを開く。
// メモリバックエンドの場合、HealthCheckerとクリーンアップジョブはnilになる。
func openStore(cfg *config.Config, log *slog.Logger) (*storage, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("database connection established",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
		return &storage{
			store:   repository.NewPostgresKVRepo(db),
			checker: db,
			cleanup: newCleanupJob(cfg, db, cleanup.DialectPostgres, log),
			close:   db.Close,
		}, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite database opened", slog.String("path", cfg.SQLitePath))
		return &storage{
			store:   repository.NewSQLiteKVRepo(db),
			checker: db,
			cleanup: newCleanupJob(cfg, db, cleanup.DialectSQLite, log),
			close:   db.Close,
		}, nil

	case config.BackendMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		return &storage{store: kvstore.NewMemoryStore()}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// newCleanupJob は保持期間が設定されている場合にクリーンアップジョブを生成する。
func newCleanupJob(cfg *config.Config, db cleanup.Executor, dialect cleanup.Dialect, log *slog.Logger) *cleanup.CleanupJob {
	if cfg.StorageRetention <= 0 {
		return nil
	}
	job := cleanup.NewCleanupJob(db, dialect, log)
	job.Retention = cfg.StorageRetention
	return job
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	srv, err := NewServer(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			slog.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.StartSweeper(ctx, cfg.SweepInterval)
	if srv.StartCleanup(ctx, cfg.CleanupInterval) {
		slog.Info("storage cleanup scheduled",
			slog.Duration("retention", cfg.StorageRetention),
			slog.Duration("interval", cfg.CleanupInterval),
		)
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	listenErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-listenErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully",
		slog.Int("active_workspaces", srv.Registry.Len()),
	)
	return nil
}

// runMigrate はストレージのスキーマを適用する。
// PostgreSQLではすべての未適用マイグレーションを順番に適用し、
// SQLiteではファイルを開いてテーブルを作成する。
func runMigrate(cfg *config.Config) error {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		slog.Info("running database migrations",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)

		status, err := database.RunMigrations(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		slog.Info("database migrations completed successfully",
			slog.Uint64("version", uint64(status.Version)),
			slog.Bool("applied", status.Applied),
		)
		return nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("sqlite schema is up to date", slog.String("path", cfg.SQLitePath))
		return db.Close()

	default:
		return fmt.Errorf("migrate is not supported for storage backend %q", cfg.StorageBackend)
	}
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できないURLは全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
