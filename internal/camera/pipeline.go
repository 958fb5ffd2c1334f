package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"rusuban/internal/config"
)

// Pipeline はカメラからHLS配信と検知用フレームを生成するプロセス対を管理する
//
// rpicam-vid が生のH.264を標準出力に書き、ffmpeg がそれを受け取って
// HLSセグメントと低解像度MJPEGストリームの2系統を出力する。
// カメラデバイスは rpicam-vid の1プロセスだけが占有する。
type Pipeline struct {
	camera config.CameraConfig
	hlsDir string

	frameChan chan []byte
	errorChan chan error
}

// NewPipeline は新しいPipelineを作成する
func NewPipeline(camera config.CameraConfig, hlsDir string) *Pipeline {
	return &Pipeline{
		camera:    camera,
		hlsDir:    hlsDir,
		frameChan: make(chan []byte, 10),
		errorChan: make(chan error, 5),
	}
}

// FrameChannel は検知用フレームのチャンネルを返す
func (p *Pipeline) FrameChannel() <-chan []byte {
	return p.frameChan
}

// ErrorChannel はエラーチャンネルを返す
func (p *Pipeline) ErrorChannel() <-chan error {
	return p.errorChan
}

// buildCaptureArgs は rpicam-vid のコマンドライン引数を組み立てる
func (p *Pipeline) buildCaptureArgs() []string {
	return []string{
		"-n", // プレビューなし
		"-t", "0", // 無期限に実行
		"--framerate", strconv.Itoa(p.camera.FPS),
		"--width", strconv.Itoa(p.camera.Width),
		"--height", strconv.Itoa(p.camera.Height),
		"--bitrate", strconv.Itoa(p.camera.Bitrate),
		"--inline", // 各IDRフレームにSPS/PPSを付与（HLS途中参加用）
		"-o", "-",
	}
}

// buildMuxArgs は ffmpeg のコマンドライン引数を組み立てる
// 出力1: HLSプレイリスト、出力2: 検知用MJPEGパイプ
func (p *Pipeline) buildMuxArgs() []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		// 入力0: rpicam-vid からの生H.264
		"-f", "h264",
		"-fflags", "+genpts", // タイムスタンプを生成
		"-r", strconv.Itoa(p.camera.FPS),
		"-i", "pipe:0",
	}

	// 入力1: ALSA音声（任意）
	if p.camera.AudioEnabled {
		args = append(args,
			"-f", "alsa",
			"-i", p.camera.AudioDevice,
		)
	}

	// 出力1: HLS
	args = append(args, "-map", "0:v", "-c:v", "copy")
	if p.camera.AudioEnabled {
		args = append(args, "-map", "1:a", "-c:a", "aac", "-b:a", "128k")
	}
	args = append(args,
		"-f", "hls",
		"-hls_time", strconv.Itoa(p.camera.HLSSegmentSeconds),
		"-hls_list_size", strconv.Itoa(p.camera.HLSListSize),
		"-hls_flags", "delete_segments",
		"-hls_allow_cache", "0",
		filepath.Join(p.hlsDir, "stream.m3u8"),
	)

	// 出力2: 検知用の低解像度MJPEGストリーム
	args = append(args,
		"-map", "0:v",
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-2", p.camera.LoresFPS, p.camera.LoresWidth),
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)

	return args
}

// Run はパイプラインを起動し、プロセスが終了するまでブロックする
// コンテキストのキャンセルで両プロセスを停止する
func (p *Pipeline) Run(ctx context.Context) error {
	// 前回実行の残骸セグメントをクリーンアップ
	p.cleanupStaleSegments()

	capture := exec.CommandContext(ctx, "rpicam-vid", p.buildCaptureArgs()...)
	mux := exec.CommandContext(ctx, "ffmpeg", p.buildMuxArgs()...)

	// rpicam-vid の標準出力を ffmpeg の標準入力へ接続
	captureOut, err := capture.StdoutPipe()
	if err != nil {
		return fmt.Errorf("rpicam-vid のstdoutパイプの作成に失敗: %w", err)
	}
	mux.Stdin = captureOut

	// ffmpeg の標準出力からMJPEGフレームを読み取る
	muxOut, err := mux.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg のstdoutパイプの作成に失敗: %w", err)
	}

	mux.Stderr = os.Stderr

	if err := capture.Start(); err != nil {
		return fmt.Errorf("rpicam-vid の起動に失敗: %w", err)
	}
	if err := mux.Start(); err != nil {
		_ = capture.Process.Kill()
		_, _ = capture.Process.Wait()
		return fmt.Errorf("ffmpeg の起動に失敗: %w", err)
	}

	// フレームスキャンを開始
	scanDone := make(chan error, 1)
	go func() {
		scanDone <- scanFrames(ctx, muxOut, p.frameChan)
	}()

	// rpicam-vid が先に死ねば ffmpeg はstdinのEOFで終了するため、
	// 監視は ffmpeg 側だけでよい
	muxDone := make(chan error, 1)
	go func() {
		muxDone <- mux.Wait()
	}()

	var runErr error
	muxWaited := false
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-muxDone:
		muxWaited = true
		if err != nil {
			runErr = fmt.Errorf("パイプラインのプロセスが異常終了: %w", err)
		} else {
			runErr = fmt.Errorf("パイプラインのプロセスが予期せず終了しました")
		}
	case err := <-scanDone:
		if err != nil {
			runErr = fmt.Errorf("フレームスキャンに失敗: %w", err)
		}
	}

	// 残ったプロセスを停止して回収する（ゾンビ防止）
	// capture.Wait はstdoutパイプを閉じるので、読み手の ffmpeg の回収後に呼ぶ
	_ = mux.Process.Kill()
	if !muxWaited {
		<-muxDone
	}
	_ = capture.Process.Kill()
	_ = capture.Wait()

	return runErr
}

// cleanupStaleSegments は前回実行のプレイリストとセグメントを削除する
func (p *Pipeline) cleanupStaleSegments() {
	entries, err := os.ReadDir(p.hlsDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".ts" || ext == ".m3u8" {
			_ = os.Remove(filepath.Join(p.hlsDir, entry.Name()))
		}
	}
}
