// Package kvstore はキー・バリュー形式の永続化層を提供する。
// タスク一覧やログインユーザーはJSONにエンコードされ、固定キーで保存される。
package kvstore

import (
	"context"
	"errors"
	"strings"
)

// Store はバイト列を保存するキー・バリューストアのインターフェース。
type Store interface {
	// Get は指定キーの値を取得する。未設定の場合はfound=falseを返す。
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set は指定キーに値を書き込む。既存の値は上書きする。
	Set(ctx context.Context, key string, value []byte) error
	// Delete は指定キーを削除する。未設定の場合もエラーにしない。
	Delete(ctx context.Context, key string) error
}

// ErrCorrupt は保存済みの値をデコードできなかったことを示す。
var ErrCorrupt = errors.New("kvstore: corrupt value")

// namespaceSeparator は名前空間とキーの区切り文字。
const namespaceSeparator = "/"

// namespaced はキーに名前空間プレフィックスを付与するStoreのラッパー。
type namespaced struct {
	store  Store
	prefix string
}

// Namespaced はキーをnsで区切ったStoreを返す。
// クライアントごとに "tasks" や "user" が衝突しないようにするために使う。
func Namespaced(store Store, ns string) Store {
	ns = strings.TrimSpace(ns)
	if ns == "" || store == nil {
		return store
	}
	return &namespaced{store: store, prefix: ns + namespaceSeparator}
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.store.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.store.Set(ctx, n.prefix+key, value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.prefix+key)
}
