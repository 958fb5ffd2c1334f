package clips

import (
	"testing"
	"time"
)

// TestHumanLabel はファイル名から表示ラベルへの変換をテストする
func TestHumanLabel(t *testing.T) {
	testCases := []struct {
		name     string
		filename string
		expected string
	}{
		{
			name:     "正常なクリップ名",
			filename: "2026-08-25_14-30-05.mp4",
			expected: "14:30 on 08/25/2026",
		},
		{
			name:     "深夜のクリップ名",
			filename: "2026-01-01_00-00-00.mp4",
			expected: "00:00 on 01/01/2026",
		},
		{
			name:     "形式に合わない名前はそのまま",
			filename: "backup.mp4",
			expected: "backup.mp4",
		},
		{
			name:     "拡張子違い",
			filename: "2026-08-25_14-30-05.avi",
			expected: "2026-08-25_14-30-05.avi",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HumanLabel(tc.filename); got != tc.expected {
				t.Errorf("期待されたラベル: %s, 実際: %s", tc.expected, got)
			}
		})
	}
}

// TestParseTimestamp はファイル名からの時刻復元をテストする
func TestParseTimestamp(t *testing.T) {
	ts, ok := ParseTimestamp("2026-08-25_14-30-05.mp4")
	if !ok {
		t.Fatal("タイムスタンプの取り出しに失敗しました")
	}

	expected := time.Date(2026, 8, 25, 14, 30, 5, 0, time.Local)
	if !ts.Equal(expected) {
		t.Errorf("期待された時刻: %v, 実際: %v", expected, ts)
	}

	if _, ok := ParseTimestamp("backup.mp4"); ok {
		t.Error("形式外のファイル名が成功扱いになっています")
	}
}

// TestSortNewestFirst はクリップ名の並び替えをテストする
func TestSortNewestFirst(t *testing.T) {
	filenames := []string{
		"2026-08-24_09-00-00.mp4",
		"2026-08-25_14-30-05.mp4",
		"2026-08-25_08-15-30.mp4",
	}

	sortNewestFirst(filenames)

	expected := []string{
		"2026-08-25_14-30-05.mp4",
		"2026-08-25_08-15-30.mp4",
		"2026-08-24_09-00-00.mp4",
	}
	for i := range expected {
		if filenames[i] != expected[i] {
			t.Errorf("位置%d: 期待 %s, 実際 %s", i, expected[i], filenames[i])
		}
	}
}

// TestValidateFilename はファイル名の安全性検証をテストする
func TestValidateFilename(t *testing.T) {
	testCases := []struct {
		name      string
		filename  string
		expectErr bool
	}{
		{"正常なクリップ名", "2026-08-25_14-30-05.mp4", false},
		{"空のファイル名", "", true},
		{"親ディレクトリへの参照", "../etc/passwd.mp4", true},
		{"パス区切りを含む", "subdir/clip.mp4", true},
		{"拡張子がmp4ではない", "clip.txt", true},
		{"隠された親参照", "..mp4..", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFilename(tc.filename)
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、nilが返されました")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("エラーが返されました: %v", err)
			}
		})
	}
}

// TestThumbnailFor はサムネイル名の導出をテストする
func TestThumbnailFor(t *testing.T) {
	if got := thumbnailFor("2026-08-25_14-30-05.mp4"); got != "2026-08-25_14-30-05.jpg" {
		t.Errorf("サムネイル名が期待と異なります: %s", got)
	}
}
