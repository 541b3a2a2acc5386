// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, system
	Action   string // ユーザー向け対処方法
	Err      error  // 原因となったエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。errors.Is / errors.As で辿れるようにする。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeTaskNotFound       = "TASK_NOT_FOUND"
	ErrCodeInvalidTask        = "INVALID_TASK"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeCorruptState       = "CORRUPT_STATE"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewInvalidTaskError はタスク入力値の検証エラーを生成する。
func NewInvalidTaskError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTask,
		Message:  fmt.Sprintf("無効なタスクです: %s", reason),
		Category: "validation",
		Action:   "タイトルを入力し、ステータスと優先度には定義済みの値を指定してください。",
	}
}

// NewInvalidCredentialsError はログイン入力が不足している場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスとパスワードを入力してください。",
		Category: "auth",
		Action:   "メールアドレスとパスワードの両方を入力して再度ログインしてください。",
	}
}

// NewUnauthorizedError は未ログイン時のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// 破損データへの対処ごとのAction文言。
const (
	CorruptActionReseeded = "保存データはデモタスクで初期化されました。必要に応じてタスクを再登録してください。"
	CorruptActionReset    = "タスクを再初期化してください。初期化するまでタスクは変更できません。"
	CorruptActionRelogin  = "保存されていたログイン情報は破棄されました。再度ログインしてください。"
)

// NewCorruptStateError は永続化データが解読できない場合のエラーを生成する。
// actionは実際に行った対処に合わせて呼び出し側が渡す。errは原因エラーとして保持する。
func NewCorruptStateError(key, action string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeCorruptState,
		Message:  fmt.Sprintf("保存データを読み込めませんでした: %s", key),
		Category: "system",
		Action:   action,
		Err:      err,
	}
}

// NewInvalidRequestError はリクエストボディが不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト形式を確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録し、ユーザーには返さない。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
