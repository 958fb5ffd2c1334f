// Package recorder は動体検知をきっかけとするクリップ録画を担う
//
// ライブ配信のHLSセグメントをコピー結合してMP4クリップを作るだけで、
// 再エンコードもカメラの二重オープンも行わない。
package recorder

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"rusuban/internal/camera"
	"rusuban/internal/config"
	"rusuban/internal/eventlog"
	"rusuban/internal/settings"
)

// Recorder は動体検知クリップの録画を管理する
type Recorder struct {
	cfg      *config.Config
	settings *settings.Store
	events   *eventlog.Log

	recording atomic.Bool
}

// New は新しいRecorderを作成する
func New(cfg *config.Config, store *settings.Store, events *eventlog.Log) *Recorder {
	return &Recorder{
		cfg:      cfg,
		settings: store,
		events:   events,
	}
}

// Recording は録画が進行中かどうかを返す
func (r *Recorder) Recording() bool {
	return r.recording.Load()
}

// Trigger は動体検知からの録画開始要求を受け付ける
// 既に録画中の場合は何もしない
func (r *Recorder) Trigger(ctx context.Context, score float64) {
	if !r.recording.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer r.recording.Store(false)

		if err := r.record(ctx, score); err != nil {
			log.Printf("クリップ録画に失敗: %v", err)
		}
	}()
}

// record はクリップを1本作成する
func (r *Recorder) record(ctx context.Context, score float64) error {
	session := uuid.New().String()[:8]
	log.Printf("[%s] クリップ録画を開始します", session)

	// HLSのローリングウィンドウにイベント後の映像が溜まるのを待つ
	duration := r.settings.Get().Duration()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(duration):
	}

	segments, err := camera.Segments(r.cfg.PlaylistPath())
	if err != nil {
		return fmt.Errorf("セグメント一覧の取得に失敗: %w", err)
	}
	if len(segments) == 0 {
		log.Printf("[%s] プレイリストに録画対象のセグメントがありません", session)
		return nil
	}

	// 結合リストを作成（セグメントと同じディレクトリに置くため相対名で書く）
	concatPath := filepath.Join(r.cfg.Storage.HLSDir, "concat.txt")
	if err := writeConcatList(concatPath, segments); err != nil {
		return fmt.Errorf("結合リストの作成に失敗: %w", err)
	}
	defer func() {
		_ = os.Remove(concatPath)
	}()

	timestamp := time.Now()
	clipName := clipFilename(timestamp)
	clipPath := filepath.Join(r.cfg.Storage.ClipsDir, clipName)

	if err := concatSegments(ctx, concatPath, clipPath); err != nil {
		return err
	}
	log.Printf("[%s] クリップを保存しました: %s", session, clipPath)

	// サムネイルの失敗はクリップを無効にしない
	thumbPath := filepath.Join(r.cfg.Storage.ThumbnailsDir, thumbnailName(clipName))
	if err := generateThumbnail(ctx, clipPath, thumbPath, r.cfg.Recording.ThumbnailWidth); err != nil {
		log.Printf("[%s] サムネイル生成に失敗: %v", session, err)
	} else {
		log.Printf("[%s] サムネイルを保存しました: %s", session, thumbPath)
	}

	// イベント履歴への記録も同様にクリップを無効にしない
	if r.events != nil {
		if err := r.events.Insert(timestamp, score, clipName); err != nil {
			log.Printf("[%s] イベント履歴の記録に失敗: %v", session, err)
		}
	}

	return nil
}

// clipFilename は録画時刻からクリップのファイル名を生成する
// 辞書順の降順ソートが新しい順になる形式を使う
func clipFilename(t time.Time) string {
	return t.Format("2006-01-02_15-04-05") + ".mp4"
}

// thumbnailName はクリップ名に対応するサムネイル名を返す
func thumbnailName(clipName string) string {
	return strings.TrimSuffix(clipName, filepath.Ext(clipName)) + ".jpg"
}

// writeConcatList はffmpegのconcat demuxer用リストファイルを書き出す
func writeConcatList(path string, segments []string) error {
	var builder strings.Builder
	for _, segment := range segments {
		builder.WriteString(fmt.Sprintf("file '%s'\n", filepath.Base(segment)))
	}

	return os.WriteFile(path, []byte(builder.String()), 0644)
}
