package clips

import (
	"os"
	"path/filepath"
	"testing"
)

// writeClip はテスト用のダミークリップを作成する
func writeClip(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("dummy"), 0644); err != nil {
		t.Fatalf("テストクリップの作成に失敗しました: %v", err)
	}
}

// newTestStore はテスト用のStoreとディレクトリを用意する
func newTestStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	base := t.TempDir()
	clipsDir := filepath.Join(base, "clips")
	thumbsDir := filepath.Join(base, "thumbnails")
	for _, dir := range []string{clipsDir, thumbsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("テストディレクトリの作成に失敗しました: %v", err)
		}
	}
	return NewStore(clipsDir, thumbsDir), clipsDir, thumbsDir
}

// TestRecent は新しい順の一覧取得をテストする
func TestRecent(t *testing.T) {
	store, clipsDir, thumbsDir := newTestStore(t)

	writeClip(t, clipsDir, "2026-08-24_09-00-00.mp4")
	writeClip(t, clipsDir, "2026-08-25_14-30-05.mp4")
	writeClip(t, clipsDir, "2026-08-25_08-15-30.mp4")
	writeClip(t, clipsDir, "notes.txt") // クリップ以外は無視される

	// サムネイルは1本だけ用意する
	writeClip(t, thumbsDir, "2026-08-25_14-30-05.jpg")

	recent, err := store.Recent(2)
	if err != nil {
		t.Fatalf("一覧の取得に失敗しました: %v", err)
	}

	if len(recent) != 2 {
		t.Fatalf("期待された件数: 2, 実際: %d", len(recent))
	}
	if recent[0].Filename != "2026-08-25_14-30-05.mp4" {
		t.Errorf("先頭が最新のクリップではありません: %s", recent[0].Filename)
	}
	if recent[0].Thumbnail != "2026-08-25_14-30-05.jpg" {
		t.Errorf("サムネイルが設定されていません: %s", recent[0].Thumbnail)
	}
	if recent[1].Thumbnail != "" {
		t.Errorf("サムネイルがないクリップに値が入っています: %s", recent[1].Thumbnail)
	}
}

// TestRecentMissingDir はディレクトリがない場合の動作をテストする
func TestRecentMissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing"), t.TempDir())

	recent, err := store.Recent(10)
	if err != nil {
		t.Fatalf("エラーが返されました: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("空の一覧が期待されましたが: %d件", len(recent))
	}
}

// TestGetPage はページ分割をテストする
func TestGetPage(t *testing.T) {
	store, clipsDir, _ := newTestStore(t)

	names := []string{
		"2026-08-25_10-00-00.mp4",
		"2026-08-25_11-00-00.mp4",
		"2026-08-25_12-00-00.mp4",
		"2026-08-25_13-00-00.mp4",
		"2026-08-25_14-00-00.mp4",
	}
	for _, name := range names {
		writeClip(t, clipsDir, name)
	}

	testCases := []struct {
		name       string
		page       int
		perPage    int
		count      int
		totalPages int
		first      string
	}{
		{"1ページ目", 1, 2, 2, 3, "2026-08-25_14-00-00.mp4"},
		{"2ページ目", 2, 2, 2, 3, "2026-08-25_12-00-00.mp4"},
		{"最終ページは端数", 3, 2, 1, 3, "2026-08-25_10-00-00.mp4"},
		{"範囲外のページは空", 9, 2, 0, 3, ""},
		{"0以下は1ページ目扱い", 0, 2, 2, 3, "2026-08-25_14-00-00.mp4"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := store.GetPage(tc.page, tc.perPage)
			if err != nil {
				t.Fatalf("ページの取得に失敗しました: %v", err)
			}

			if len(result.Clips) != tc.count {
				t.Errorf("期待された件数: %d, 実際: %d", tc.count, len(result.Clips))
			}
			if result.TotalPages != tc.totalPages {
				t.Errorf("期待されたページ数: %d, 実際: %d", tc.totalPages, result.TotalPages)
			}
			if result.TotalClips != len(names) {
				t.Errorf("期待された総件数: %d, 実際: %d", len(names), result.TotalClips)
			}
			if tc.first != "" && result.Clips[0].Filename != tc.first {
				t.Errorf("先頭のクリップが期待と異なります: %s", result.Clips[0].Filename)
			}
		})
	}
}

// TestDelete はソフト削除をテストする
func TestDelete(t *testing.T) {
	store, clipsDir, thumbsDir := newTestStore(t)

	writeClip(t, clipsDir, "2026-08-25_14-30-05.mp4")
	writeClip(t, thumbsDir, "2026-08-25_14-30-05.jpg")

	if err := store.Delete("2026-08-25_14-30-05.mp4"); err != nil {
		t.Fatalf("削除に失敗しました: %v", err)
	}

	if _, err := os.Stat(filepath.Join(clipsDir, "2026-08-25_14-30-05.mp4")); !os.IsNotExist(err) {
		t.Error("クリップが残っています")
	}
	if _, err := os.Stat(filepath.Join(thumbsDir, "2026-08-25_14-30-05.jpg")); !os.IsNotExist(err) {
		t.Error("サムネイルが残っています")
	}

	// 一時ディレクトリへ移動されている
	moved := filepath.Join(os.TempDir(), "2026-08-25_14-30-05.mp4")
	if _, err := os.Stat(moved); err != nil {
		t.Errorf("一時ディレクトリにクリップがありません: %v", err)
	}
	_ = os.Remove(moved)
	_ = os.Remove(filepath.Join(os.TempDir(), "2026-08-25_14-30-05.jpg"))
}

// TestDeleteMissing は存在しないクリップの削除が成功扱いになることをテストする
func TestDeleteMissing(t *testing.T) {
	store, _, _ := newTestStore(t)

	if err := store.Delete("2026-08-25_14-30-05.mp4"); err != nil {
		t.Errorf("存在しないクリップの削除がエラーになりました: %v", err)
	}
}

// TestDeleteInvalid は無効なファイル名の削除が拒否されることをテストする
func TestDeleteInvalid(t *testing.T) {
	store, _, _ := newTestStore(t)

	if err := store.Delete("../evil.mp4"); err == nil {
		t.Error("無効なファイル名の削除がエラーになりませんでした")
	}
}

// TestCacheInvalidate はキャッシュの無効化をテストする
func TestCacheInvalidate(t *testing.T) {
	store, clipsDir, _ := newTestStore(t)

	writeClip(t, clipsDir, "2026-08-25_10-00-00.mp4")

	first, err := store.Recent(10)
	if err != nil {
		t.Fatalf("一覧の取得に失敗しました: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("期待された件数: 1, 実際: %d", len(first))
	}

	// キャッシュが効いている間は新しいファイルが見えない
	writeClip(t, clipsDir, "2026-08-25_11-00-00.mp4")
	cached, err := store.Recent(10)
	if err != nil {
		t.Fatalf("一覧の取得に失敗しました: %v", err)
	}
	if len(cached) != 1 {
		t.Fatalf("キャッシュが効いていません: %d件", len(cached))
	}

	// 無効化後は反映される
	store.invalidate()
	refreshed, err := store.Recent(10)
	if err != nil {
		t.Fatalf("一覧の取得に失敗しました: %v", err)
	}
	if len(refreshed) != 2 {
		t.Errorf("無効化後の件数が期待と異なります: %d件", len(refreshed))
	}
}
