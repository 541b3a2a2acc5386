// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ストアやHTTP層から利用する。
type MetricsCollector interface {
	RecordTaskMutation(op string)
	RecordPersistenceFailure(key string)
	RecordCorruptState(key string)
	RecordLogin(success bool)
	RecordHTTPStatus(statusCode int)
	SetActiveWorkspaces(n int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	taskMutations    *prometheus.CounterVec
	persistenceFail  *prometheus.CounterVec
	corruptState     *prometheus.CounterVec
	logins           *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	activeWorkspaces prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		taskMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_task_mutations_total",
			Help: "操作種別ごとのタスク更新数",
		}, []string{"op"}),
		persistenceFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_persistence_fail_total",
			Help: "永続化キーごとの書き込み失敗数",
		}, []string{"key"}),
		corruptState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_corrupt_state_total",
			Help: "デコードできなかった保存データの検出数",
		}, []string{"key"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		activeWorkspaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskmaster_active_workspaces",
			Help: "メモリ上に保持しているクライアントワークスペース数",
		}),
	}

	reg.MustRegister(
		c.taskMutations,
		c.persistenceFail,
		c.corruptState,
		c.logins,
		c.httpStatus,
		c.activeWorkspaces,
	)

	return c
}

// RecordTaskMutation はタスクの追加・更新・削除を記録する。
func (c *Collector) RecordTaskMutation(op string) {
	c.taskMutations.WithLabelValues(op).Inc()
}

// RecordPersistenceFailure は永続化の失敗を記録する。
func (c *Collector) RecordPersistenceFailure(key string) {
	c.persistenceFail.WithLabelValues(key).Inc()
}

// RecordCorruptState は破損データの検出を記録する。
func (c *Collector) RecordCorruptState(key string) {
	c.corruptState.WithLabelValues(key).Inc()
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "rejected"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetActiveWorkspaces は保持中のワークスペース数を設定する。
func (c *Collector) SetActiveWorkspaces(n int) {
	c.activeWorkspaces.Set(float64(n))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordTaskMutation(string)       {}
func (Nop) RecordPersistenceFailure(string) {}
func (Nop) RecordCorruptState(string)       {}
func (Nop) RecordLogin(bool)                {}
func (Nop) RecordHTTPStatus(int)            {}
func (Nop) SetActiveWorkspaces(int)         {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
