package recorder

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// concatSegments はHLSセグメントを再エンコードなしでMP4に結合する
func concatSegments(ctx context.Context, concatPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", concatPath,
		"-c", "copy",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("セグメント結合に失敗: %w (output: %s)", err, string(output))
	}

	return nil
}

// generateThumbnail はクリップの1秒地点からサムネイルを切り出す
func generateThumbnail(ctx context.Context, clipPath, thumbPath string, width int) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// 高さ "-2" はアスペクト比を維持する
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", clipPath,
		"-ss", "00:00:01",
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", width),
		thumbPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("サムネイル生成に失敗: %w (output: %s)", err, string(output))
	}

	return nil
}
