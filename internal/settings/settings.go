// Package settings は実行時に変更可能な設定を管理する
//
// 感度とクリップ長はWebの設定ページから変更され、動体検知ループと
// 録画処理が毎サイクル参照する。設定はJSONファイルに永続化され、
// 再起動後も保持される。
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// デフォルト値
const (
	DefaultSensitivity  = 80 // UI感度 (1-100、大きいほど敏感)
	DefaultClipDuration = 10 // クリップ長（秒）
)

// Settings は実行時設定の値
type Settings struct {
	Sensitivity  int `json:"sensitivity"` // UI感度 (1-100)
	ClipDuration int `json:"duration"`    // クリップ長（秒）
}

// Default はデフォルト設定を返す
func Default() Settings {
	return Settings{
		Sensitivity:  DefaultSensitivity,
		ClipDuration: DefaultClipDuration,
	}
}

// Validate は設定値の妥当性を検証する
func (s Settings) Validate() error {
	if s.Sensitivity < 1 || s.Sensitivity > 100 {
		return fmt.Errorf("無効な感度: %d (1-100の範囲で指定してください)", s.Sensitivity)
	}
	if s.ClipDuration < 1 || s.ClipDuration > 300 {
		return fmt.Errorf("無効なクリップ長: %d (1-300秒の範囲で指定してください)", s.ClipDuration)
	}
	return nil
}

// RawThreshold はUI感度を輝度差分のしきい値に変換する
// UI感度は大きいほど敏感なので、しきい値は逆方向になる
func (s Settings) RawThreshold() float64 {
	return float64(105 - s.Sensitivity)
}

// Duration はクリップ長をtime.Durationとして返す
func (s Settings) Duration() time.Duration {
	return time.Duration(s.ClipDuration) * time.Second
}

// Store は設定ファイルに裏付けられたスレッドセーフな設定ストア
type Store struct {
	path    string
	current Settings
	mu      sync.RWMutex
}

// NewStore は新しいStoreを作成し、設定ファイルを読み込む
// ファイルが存在しない、または壊れている場合はデフォルト値を使う
func NewStore(path string) *Store {
	store := &Store{
		path:    path,
		current: Default(),
	}

	store.load()
	return store
}

// load は設定ファイルを読み込む（失敗時はデフォルトのまま）
func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return
	}

	// 部分的なファイルに備えてゼロ値をデフォルトで補完する
	if loaded.Sensitivity == 0 {
		loaded.Sensitivity = DefaultSensitivity
	}
	if loaded.ClipDuration == 0 {
		loaded.ClipDuration = DefaultClipDuration
	}

	if err := loaded.Validate(); err != nil {
		return
	}

	s.current = loaded
}

// Get は現在の設定を取得する
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update は設定を検証・永続化してから反映する
func (s *Store) Update(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("設定のシリアライズに失敗: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗: %w", err)
	}

	s.current = settings
	return nil
}
