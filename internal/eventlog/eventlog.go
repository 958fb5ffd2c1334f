// Package eventlog は動体検知イベントの履歴をSQLiteに記録する
package eventlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Event は1回の動体検知イベント
type Event struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"` // 検知時刻
	Score      float64   `json:"score"`       // 検知時の輝度差分
	ClipFile   string    `json:"clip_file"`   // 作成されたクリップのファイル名
}

// Log はイベント履歴のストア
type Log struct {
	db        *sql.DB
	maxEvents int
}

// Open はイベントデータベースを開き、必要ならスキーマを作成する
// maxEvents を超えた古いイベントは挿入時に削除される
func Open(path string, maxEvents int) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("データベースのオープンに失敗: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS motion_event (
	"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	"occurred_at" DATETIME NOT NULL,
	"score" REAL NOT NULL,
	"clip_file" TEXT NOT NULL
);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("スキーマの作成に失敗: %w", err)
	}

	return &Log{db: db, maxEvents: maxEvents}, nil
}

// Close はデータベースをクローズする
func (l *Log) Close() error {
	return l.db.Close()
}

// Insert はイベントを記録し、保持上限を超えた古いイベントを削除する
func (l *Log) Insert(occurredAt time.Time, score float64, clipFile string) error {
	insert := `INSERT INTO motion_event(occurred_at, score, clip_file) VALUES (?, ?, ?)`
	if _, err := l.db.Exec(insert, occurredAt, score, clipFile); err != nil {
		return fmt.Errorf("イベントの挿入に失敗: %w", err)
	}

	// 上限を超えた分を古い順に削除する
	prune := `
DELETE FROM motion_event WHERE id IN
(SELECT id FROM motion_event ORDER BY id DESC LIMIT -1 OFFSET ?)
`
	if _, err := l.db.Exec(prune, l.maxEvents); err != nil {
		return fmt.Errorf("古いイベントの削除に失敗: %w", err)
	}

	return nil
}

// Recent は新しい順にイベントを最大 n 件取得する
func (l *Log) Recent(n int) ([]Event, error) {
	query := `
SELECT id, occurred_at, score, clip_file FROM motion_event
ORDER BY id DESC LIMIT ?
`
	rows, err := l.db.Query(query, n)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]Event, 0, n)
	for rows.Next() {
		var event Event
		if err := rows.Scan(&event.ID, &event.OccurredAt, &event.Score, &event.ClipFile); err != nil {
			return nil, fmt.Errorf("イベントの読み取りに失敗: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベントの走査に失敗: %w", err)
	}

	return events, nil
}
