package clips

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/radovskyb/watcher"
)

// Store はクリップディレクトリのギャラリーストア
type Store struct {
	clipsDir      string
	thumbnailsDir string

	// 一覧キャッシュ（ウォッチャーのイベントで無効化される）
	cached     []string
	cacheValid bool
	mu         sync.RWMutex

	watcher *watcher.Watcher
	wg      sync.WaitGroup
}

// NewStore は新しいStoreを作成する
func NewStore(clipsDir, thumbnailsDir string) *Store {
	return &Store{
		clipsDir:      clipsDir,
		thumbnailsDir: thumbnailsDir,
	}
}

// Start はディレクトリの監視を開始する
// 監視の失敗は一覧キャッシュが効かなくなるだけで、致命的ではない
func (s *Store) Start(ctx context.Context) error {
	w := watcher.New()
	w.FilterOps(watcher.Create, watcher.Remove, watcher.Rename, watcher.Move)

	if err := w.Add(s.clipsDir); err != nil {
		return fmt.Errorf("クリップディレクトリの監視に失敗: %w", err)
	}

	s.watcher = w

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case <-ctx.Done():
				w.Close()
				return
			case <-w.Event:
				s.invalidate()
			case err, ok := <-w.Error:
				if !ok {
					return
				}
				log.Printf("クリップディレクトリの監視エラー: %v", err)
			case <-w.Closed:
				return
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if err := w.Start(500 * time.Millisecond); err != nil {
			log.Printf("クリップディレクトリの監視を開始できません: %v", err)
		}
	}()

	return nil
}

// Stop は監視を停止する
func (s *Store) Stop() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.wg.Wait()
}

// invalidate は一覧キャッシュを無効化する
func (s *Store) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheValid = false
}

// listFilenames はクリップ名を新しい順で返す
func (s *Store) listFilenames() ([]string, error) {
	s.mu.RLock()
	if s.cacheValid {
		cached := make([]string, len(s.cached))
		copy(cached, s.cached)
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	entries, err := os.ReadDir(s.clipsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // ディレクトリがない場合は空の一覧
		}
		return nil, fmt.Errorf("クリップディレクトリの読み取りに失敗: %w", err)
	}

	filenames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".mp4" {
			continue
		}
		filenames = append(filenames, entry.Name())
	}

	sortNewestFirst(filenames)

	s.mu.Lock()
	s.cached = filenames
	s.cacheValid = true
	s.mu.Unlock()

	result := make([]string, len(filenames))
	copy(result, filenames)
	return result, nil
}

// toClip はファイル名を表示情報に変換する
func (s *Store) toClip(filename string) Clip {
	clip := Clip{
		Filename: filename,
		Label:    HumanLabel(filename),
	}

	thumbnail := thumbnailFor(filename)
	if _, err := os.Stat(filepath.Join(s.thumbnailsDir, thumbnail)); err == nil {
		clip.Thumbnail = thumbnail
	}

	return clip
}

// Recent は新しい順にクリップを最大 n 件取得する
func (s *Store) Recent(n int) ([]Clip, error) {
	filenames, err := s.listFilenames()
	if err != nil {
		return nil, err
	}

	if len(filenames) > n {
		filenames = filenames[:n]
	}

	result := make([]Clip, 0, len(filenames))
	for _, filename := range filenames {
		result = append(result, s.toClip(filename))
	}
	return result, nil
}

// GetPage はギャラリーの1ページ分を取得する
// ページ番号は1始まりで、範囲外の場合は空のページを返す
func (s *Store) GetPage(page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}

	filenames, err := s.listFilenames()
	if err != nil {
		return Page{}, err
	}

	totalClips := len(filenames)
	totalPages := (totalClips + perPage - 1) / perPage

	start := (page - 1) * perPage
	end := start + perPage
	if start > totalClips {
		start = totalClips
	}
	if end > totalClips {
		end = totalClips
	}

	pageClips := make([]Clip, 0, end-start)
	for _, filename := range filenames[start:end] {
		pageClips = append(pageClips, s.toClip(filename))
	}

	return Page{
		Clips:      pageClips,
		Page:       page,
		TotalPages: totalPages,
		TotalClips: totalClips,
	}, nil
}

// ValidateFilename はクリップのファイル名として安全か検証する
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("ファイル名が空です")
	}
	if strings.Contains(filename, "..") {
		return fmt.Errorf("無効なファイル名: %s", filename)
	}
	if filepath.Base(filename) != filename {
		return fmt.Errorf("無効なファイル名: %s", filename)
	}
	if filepath.Ext(filename) != ".mp4" {
		return fmt.Errorf("クリップではないファイル名: %s", filename)
	}
	return nil
}

// Delete はクリップとサムネイルをOSの一時ディレクトリへ移動する（ソフト削除）
// クリップが存在しない場合もエラーにはしない
func (s *Store) Delete(filename string) error {
	if err := ValidateFilename(filename); err != nil {
		return err
	}

	tempDir := os.TempDir()

	clipPath := filepath.Join(s.clipsDir, filename)
	if _, err := os.Stat(clipPath); err == nil {
		if err := moveFile(clipPath, filepath.Join(tempDir, filename)); err != nil {
			return fmt.Errorf("クリップの移動に失敗: %w", err)
		}
		log.Printf("%s を %s へ移動しました", clipPath, tempDir)
	} else {
		log.Printf("削除が要求されましたが %s が見つかりません", clipPath)
	}

	thumbnail := thumbnailFor(filename)
	thumbPath := filepath.Join(s.thumbnailsDir, thumbnail)
	if _, err := os.Stat(thumbPath); err == nil {
		if err := moveFile(thumbPath, filepath.Join(tempDir, thumbnail)); err != nil {
			return fmt.Errorf("サムネイルの移動に失敗: %w", err)
		}
		log.Printf("%s を %s へ移動しました", thumbPath, tempDir)
	}

	s.invalidate()
	return nil
}

// thumbnailFor はクリップ名に対応するサムネイル名を返す
func thumbnailFor(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jpg"
}

// moveFile はファイルを移動する
// 別ファイルシステム間ではrenameできないため、コピーと削除で代替する
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
