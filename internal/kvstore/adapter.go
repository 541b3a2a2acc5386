package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// DecodeError は保存済みの値のJSONデコードに失敗したことを表す。
// errors.Is(err, ErrCorrupt) で判定できる。
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("kvstore: failed to decode %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrCorrupt, e.Err}
}

// Adapter は値をJSONでエンコードしてStoreに読み書きする。
// storeがnilの場合は永続化先が存在しない実行環境として扱い、
// Saveは何もせず、Loadは常に未設定を返す。
type Adapter struct {
	store Store
}

// NewAdapter はAdapterを生成する。storeにnilを渡してもよい。
func NewAdapter(store Store) *Adapter {
	return &Adapter{store: store}
}

// Available は永続化先が存在するかどうかを返す。
func (a *Adapter) Available() bool {
	return a != nil && a.store != nil
}

// Save はvalueをJSONにエンコードしてkeyに書き込む。
func (a *Adapter) Save(ctx context.Context, key string, value any) error {
	if !a.Available() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}

	if err := a.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %q: %w", key, err)
	}
	return nil
}

// Load はkeyの値を読み込みdstにデコードする。
// 未設定の場合は(false, nil)を返す。デコードに失敗した場合は*DecodeErrorを返す。
// スキーマの検証は行わないため、欠けたフィールドはゼロ値のままになる。
func (a *Adapter) Load(ctx context.Context, key string, dst any) (bool, error) {
	if !a.Available() {
		return false, nil
	}

	data, found, err := a.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %q: %w", key, err)
	}
	if !found {
		return false, nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return true, &DecodeError{Key: key, Err: err}
	}
	return true, nil
}

// Remove はkeyの値を削除する。
func (a *Adapter) Remove(ctx context.Context, key string) error {
	if !a.Available() {
		return nil
	}

	if err := a.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}
