package eventlog

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// openTestLog はテスト用のイベントログを開く
func openTestLog(t *testing.T, maxEvents int) *Log {
	t.Helper()

	log, err := Open(filepath.Join(t.TempDir(), "events.db"), maxEvents)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗しました: %v", err)
	}
	t.Cleanup(func() {
		_ = log.Close()
	})
	return log
}

// TestInsertAndRecent はイベントの記録と取得をテストする
func TestInsertAndRecent(t *testing.T) {
	log := openTestLog(t, 100)

	base := time.Date(2026, 8, 25, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		clip := fmt.Sprintf("clip%d.mp4", i)
		if err := log.Insert(ts, float64(30+i), clip); err != nil {
			t.Fatalf("イベントの挿入に失敗しました: %v", err)
		}
	}

	events, err := log.Recent(10)
	if err != nil {
		t.Fatalf("イベントの取得に失敗しました: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("期待された件数: 3, 実際: %d", len(events))
	}

	// 新しい順に並んでいる
	if events[0].ClipFile != "clip2.mp4" {
		t.Errorf("先頭が最新のイベントではありません: %s", events[0].ClipFile)
	}
	if events[0].Score != 32 {
		t.Errorf("スコアが期待と異なります: %v", events[0].Score)
	}
	if !events[0].OccurredAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("検知時刻が期待と異なります: %v", events[0].OccurredAt)
	}
}

// TestRecentLimit は取得件数の上限をテストする
func TestRecentLimit(t *testing.T) {
	log := openTestLog(t, 100)

	for i := 0; i < 5; i++ {
		if err := log.Insert(time.Now(), 40, fmt.Sprintf("clip%d.mp4", i)); err != nil {
			t.Fatalf("イベントの挿入に失敗しました: %v", err)
		}
	}

	events, err := log.Recent(2)
	if err != nil {
		t.Fatalf("イベントの取得に失敗しました: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("期待された件数: 2, 実際: %d", len(events))
	}
}

// TestPrune は保持上限を超えた古いイベントの削除をテストする
func TestPrune(t *testing.T) {
	log := openTestLog(t, 3)

	for i := 0; i < 5; i++ {
		if err := log.Insert(time.Now(), 40, fmt.Sprintf("clip%d.mp4", i)); err != nil {
			t.Fatalf("イベントの挿入に失敗しました: %v", err)
		}
	}

	events, err := log.Recent(10)
	if err != nil {
		t.Fatalf("イベントの取得に失敗しました: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("保持上限が効いていません: %d件", len(events))
	}

	// 古い2件が削除され、新しい3件が残る
	if events[0].ClipFile != "clip4.mp4" {
		t.Errorf("先頭が最新のイベントではありません: %s", events[0].ClipFile)
	}
	if events[2].ClipFile != "clip2.mp4" {
		t.Errorf("末尾のイベントが期待と異なります: %s", events[2].ClipFile)
	}
}

// TestRecentEmpty はイベントがない場合の取得をテストする
func TestRecentEmpty(t *testing.T) {
	log := openTestLog(t, 100)

	events, err := log.Recent(10)
	if err != nil {
		t.Fatalf("イベントの取得に失敗しました: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("空の一覧が期待されましたが: %d件", len(events))
	}
}
