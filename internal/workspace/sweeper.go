package workspace

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper は一定間隔で Registry.Sweep を実行するバックグラウンドジョブ。
type Sweeper struct {
	registry *Registry
	logger   *slog.Logger
}

// NewSweeper は新しいSweeperを生成する。
func NewSweeper(registry *Registry, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{registry: registry, logger: logger}
}

// Start はintervalごとにアイドルWorkspaceを破棄する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ワークスペースのクリーンアップを開始しました",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ワークスペースのクリーンアップを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce はクリーンアップを1回実行する。
func (s *Sweeper) RunOnce(ctx context.Context) {
	start := time.Now()

	evicted, err := s.registry.Sweep(ctx)
	if err != nil {
		s.logger.Error("ワークスペースのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("ワークスペースのクリーンアップが完了しました",
		slog.Int("evicted_count", evicted),
		slog.Int("active_count", s.registry.Len()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
