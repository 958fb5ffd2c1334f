package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefault はデフォルト設定をテストする
func TestDefault(t *testing.T) {
	s := Default()

	if s.Sensitivity != DefaultSensitivity {
		t.Errorf("デフォルト感度が期待と異なります: %d", s.Sensitivity)
	}
	if s.ClipDuration != DefaultClipDuration {
		t.Errorf("デフォルトクリップ長が期待と異なります: %d", s.ClipDuration)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("デフォルト設定が検証を通りません: %v", err)
	}
}

// TestValidate は設定値の検証をテストする
func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		settings  Settings
		expectErr bool
	}{
		{"正常な設定", Settings{Sensitivity: 80, ClipDuration: 10}, false},
		{"感度の下限", Settings{Sensitivity: 1, ClipDuration: 10}, false},
		{"感度の上限", Settings{Sensitivity: 100, ClipDuration: 10}, false},
		{"感度が低すぎる", Settings{Sensitivity: 0, ClipDuration: 10}, true},
		{"感度が高すぎる", Settings{Sensitivity: 101, ClipDuration: 10}, true},
		{"クリップ長の下限", Settings{Sensitivity: 80, ClipDuration: 1}, false},
		{"クリップ長の上限", Settings{Sensitivity: 80, ClipDuration: 300}, false},
		{"クリップ長が短すぎる", Settings{Sensitivity: 80, ClipDuration: 0}, true},
		{"クリップ長が長すぎる", Settings{Sensitivity: 80, ClipDuration: 301}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.settings.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、nilが返されました")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("エラーが返されました: %v", err)
			}
		})
	}
}

// TestRawThreshold は感度からしきい値への変換をテストする
func TestRawThreshold(t *testing.T) {
	testCases := []struct {
		sensitivity int
		threshold   float64
	}{
		{100, 5},  // 最高感度は最小のしきい値
		{80, 25},  // デフォルト
		{1, 104},  // 最低感度は最大のしきい値
	}

	for _, tc := range testCases {
		s := Settings{Sensitivity: tc.sensitivity, ClipDuration: 10}
		if got := s.RawThreshold(); got != tc.threshold {
			t.Errorf("感度%dのしきい値: 期待 %v, 実際 %v", tc.sensitivity, tc.threshold, got)
		}
	}
}

// TestDuration はクリップ長の変換をテストする
func TestDuration(t *testing.T) {
	s := Settings{Sensitivity: 80, ClipDuration: 15}
	if got := s.Duration(); got != 15*time.Second {
		t.Errorf("クリップ長が期待と異なります: %v", got)
	}
}

// TestStoreLoadMissing はファイルがない場合のデフォルト動作をテストする
func TestStoreLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	store := NewStore(path)
	if got := store.Get(); got != Default() {
		t.Errorf("デフォルト設定が期待されましたが: %+v", got)
	}
}

// TestStoreLoadCorrupt は壊れたファイルの場合のデフォルト動作をテストする
func TestStoreLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("テストファイルの作成に失敗しました: %v", err)
	}

	store := NewStore(path)
	if got := store.Get(); got != Default() {
		t.Errorf("デフォルト設定が期待されましたが: %+v", got)
	}
}

// TestStoreLoadPartial は一部の値だけ持つファイルの補完をテストする
func TestStoreLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"sensitivity": 50}`), 0644); err != nil {
		t.Fatalf("テストファイルの作成に失敗しました: %v", err)
	}

	store := NewStore(path)
	got := store.Get()
	if got.Sensitivity != 50 {
		t.Errorf("感度が期待と異なります: %d", got.Sensitivity)
	}
	if got.ClipDuration != DefaultClipDuration {
		t.Errorf("クリップ長はデフォルトに補完されるべきです: %d", got.ClipDuration)
	}
}

// TestStoreUpdate は設定の更新と永続化をテストする
func TestStoreUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewStore(path)

	updated := Settings{Sensitivity: 60, ClipDuration: 20}
	if err := store.Update(updated); err != nil {
		t.Fatalf("設定の更新に失敗しました: %v", err)
	}

	if got := store.Get(); got != updated {
		t.Errorf("更新後の設定が期待と異なります: %+v", got)
	}

	// 別のStoreから読み直して永続化を確認
	reloaded := NewStore(path)
	if got := reloaded.Get(); got != updated {
		t.Errorf("永続化された設定が期待と異なります: %+v", got)
	}
}

// TestStoreUpdateInvalid は無効な設定の更新が拒否されることをテストする
func TestStoreUpdateInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewStore(path)

	before := store.Get()
	if err := store.Update(Settings{Sensitivity: 0, ClipDuration: 10}); err == nil {
		t.Error("無効な設定の更新がエラーになりませんでした")
	}
	if got := store.Get(); got != before {
		t.Errorf("無効な更新後に設定が変化しています: %+v", got)
	}
}
