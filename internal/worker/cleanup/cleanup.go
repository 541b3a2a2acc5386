// Package cleanup は保存データの自動削除ジョブを提供する。
// 保持期間（デフォルト180日）を超えて更新のないクライアントの名前空間を
// kv_entriesからまとめて削除する。タスクとユーザーは同時に消えるため、
// 片方だけが残ることはない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetention はRetention未指定時の保持期間。
const DefaultRetention = 180 * 24 * time.Hour

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Dialect はkv_entriesを保持するデータベースの種別。
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// 名前空間はキーの最初の "/" より前の部分。"/" を含まないキーは対象外。
const postgresQuery = `
DELETE FROM kv_entries
WHERE strpos(key, '/') > 0
  AND split_part(key, '/', 1) IN (
    SELECT split_part(key, '/', 1)
    FROM kv_entries
    WHERE strpos(key, '/') > 0
    GROUP BY 1
    HAVING max(updated_at) < $1
  )`

const sqliteQuery = `
DELETE FROM kv_entries
WHERE instr(key, '/') > 0
  AND substr(key, 1, instr(key, '/') - 1) IN (
    SELECT substr(key, 1, instr(key, '/') - 1)
    FROM kv_entries
    WHERE instr(key, '/') > 0
    GROUP BY 1
    HAVING max(updated_at) < ?
  )`

// CleanupJob は保持期間を超過したクライアントデータの自動削除ジョブ。
// 冪等な削除処理のため、何度実行してもよい。
type CleanupJob struct {
	db        Executor
	dialect   Dialect
	logger    *slog.Logger
	now       func() time.Time
	Retention time.Duration // 最終更新からの保持期間（デフォルト: 180日）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, dialect Dialect, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:        db,
		dialect:   dialect,
		logger:    logger,
		now:       time.Now,
		Retention: DefaultRetention,
	}
}

// Run は最終更新がRetentionより古い名前空間のエントリを削除する。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().Add(-j.Retention).UTC()

	query, arg := postgresQuery, any(cutoff)
	if j.dialect == DialectSQLite {
		query, arg = sqliteQuery, cutoff.UnixMilli()
	}

	result, err := j.db.ExecContext(ctx, query, arg)
	if err != nil {
		j.logger.Error("保存データのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("retention", j.Retention),
		)
		return fmt.Errorf("保存データのクリーンアップに失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("保存データのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Duration("retention", j.Retention),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// Runのエラーはログに記録済みのため、次回の実行で再試行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
