package camera

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Segments はHLSプレイリストに現在載っているセグメントのパス一覧を返す
// ディレクトリを走査すると削除待ちの古いセグメントを拾ってしまうため、
// プレイリストを唯一の情報源として扱う
func Segments(playlistPath string) ([]string, error) {
	file, err := os.Open(playlistPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("プレイリストのオープンに失敗: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	hlsDir := filepath.Dir(playlistPath)

	var segments []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, ".ts") {
			segments = append(segments, filepath.Join(hlsDir, line))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("プレイリストの読み取りに失敗: %w", err)
	}

	return segments, nil
}
