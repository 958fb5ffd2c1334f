// Package clips はクリップディレクトリに裏付けられたギャラリーを提供する
//
// クリップはファイル名がタイムスタンプのMP4で、別ディレクトリに同名の
// サムネイルJPEGを持つ。一覧はディレクトリ走査の結果をキャッシュし、
// ファイルの増減をウォッチャーで検知してキャッシュを無効化する。
package clips

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Clip は1本のクリップの表示情報
type Clip struct {
	Filename  string `json:"filename"`  // クリップのファイル名
	Label     string `json:"label"`     // 人間向けの日時ラベル
	Thumbnail string `json:"thumbnail"` // サムネイルのファイル名（ない場合は空）
}

// Page はギャラリーの1ページ分
type Page struct {
	Clips      []Clip `json:"clips"`
	Page       int    `json:"page"`
	TotalPages int    `json:"total_pages"`
	TotalClips int    `json:"total_clips"`
}

// クリップ名の形式: YYYY-MM-DD_HH-MM-SS.mp4
var clipNamePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})_(\d{2})-(\d{2})-(\d{2})\.mp4$`)

// HumanLabel はクリップのファイル名を読みやすい日時ラベルに変換する
// 形式に合わない場合はファイル名をそのまま返す
func HumanLabel(filename string) string {
	matches := clipNamePattern.FindStringSubmatch(filename)
	if matches == nil {
		return filename
	}

	year, month, day := matches[1], matches[2], matches[3]
	hour, minute := matches[4], matches[5]
	return fmt.Sprintf("%s:%s on %s/%s/%s", hour, minute, month, day, year)
}

// ParseTimestamp はクリップのファイル名から録画時刻を取り出す
func ParseTimestamp(filename string) (time.Time, bool) {
	if !clipNamePattern.MatchString(filename) {
		return time.Time{}, false
	}

	base := strings.TrimSuffix(filename, ".mp4")
	t, err := time.ParseInLocation("2006-01-02_15-04-05", base, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// sortNewestFirst はクリップ名を新しい順に並べる
// ファイル名がタイムスタンプなので辞書順の降順でよい
func sortNewestFirst(filenames []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(filenames)))
}
