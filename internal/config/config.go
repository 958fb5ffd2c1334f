package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server    ServerConfig
	Camera    CameraConfig
	Storage   StorageConfig
	Recording RecordingConfig
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string // リッスンするホスト
	Port int    // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration // 読み込みタイムアウト
	WriteTimeout time.Duration // 書き込みタイムアウト

	SnapshotTTL time.Duration // スナップショットのキャッシュ有効期間
}

// CameraConfig はカメラとストリーミングパイプラインの設定
type CameraConfig struct {
	Device string // カメラデバイスパス (例: /dev/video0)

	FPS     int // フレームレート (fps)
	Width   int // 映像幅
	Height  int // 映像高さ
	Bitrate int // H.264ビットレート (bps)

	// HLS設定
	HLSSegmentSeconds int // セグメント長（秒）
	HLSListSize       int // プレイリストに保持するセグメント数

	// 動体検知用の低解像度フレーム設定
	LoresWidth  int // 検知用フレーム幅
	LoresHeight int // 検知用フレーム高さ
	LoresFPS    int // 検知用フレームレート

	// 音声設定（任意）
	AudioEnabled bool   // 音声キャプチャを有効にするか
	AudioDevice  string // ALSAデバイス名 (例: plughw:2,0)
}

// StorageConfig はファイル配置の設定
type StorageConfig struct {
	ClipsDir      string // クリップ保存ディレクトリ
	HLSDir        string // HLSセグメント出力ディレクトリ
	ThumbnailsDir string // サムネイル保存ディレクトリ
	SettingsFile  string // 実行時設定ファイル
	EventDBFile   string // 動体検知イベントのSQLiteファイル

	IndexClipCount  int // トップページに表示するクリップ数
	GalleryPageSize int // ギャラリー1ページあたりのクリップ数
}

// RecordingConfig はクリップ録画の設定
type RecordingConfig struct {
	ThumbnailWidth int // サムネイルの幅（高さはアスペクト比維持）
	MaxEvents      int // イベント履歴の最大保持件数
}

// Load は設定を読み込む
// 環境変数による上書きをサポートし、未設定の場合はデフォルト値を使う
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
			SnapshotTTL:  time.Second,
		},
		Camera: CameraConfig{
			Device:            getEnvOrDefault("CAMERA_DEVICE", "/dev/video0"),
			FPS:               getEnvAsIntOrDefault("CAMERA_FPS", 15),
			Width:             getEnvAsIntOrDefault("CAMERA_WIDTH", 1280),
			Height:            getEnvAsIntOrDefault("CAMERA_HEIGHT", 720),
			Bitrate:           getEnvAsIntOrDefault("CAMERA_BITRATE", 5000000),
			HLSSegmentSeconds: 2,
			HLSListSize:       5,
			LoresWidth:        320,
			LoresHeight:       240,
			LoresFPS:          5,
			AudioEnabled:      getEnvOrDefault("AUDIO_DEVICE", "") != "",
			AudioDevice:       getEnvOrDefault("AUDIO_DEVICE", ""),
		},
		Storage: StorageConfig{
			ClipsDir:        getEnvOrDefault("CLIPS_DIR", "clips"),
			HLSDir:          getEnvOrDefault("HLS_DIR", filepath.Join("static", "hls")),
			ThumbnailsDir:   getEnvOrDefault("THUMBNAILS_DIR", filepath.Join("static", "thumbnails")),
			SettingsFile:    getEnvOrDefault("SETTINGS_FILE", "settings.json"),
			EventDBFile:     getEnvOrDefault("EVENT_DB_FILE", "events.db"),
			IndexClipCount:  12,
			GalleryPageSize: 48,
		},
		Recording: RecordingConfig{
			ThumbnailWidth: 320,
			MaxEvents:      getEnvAsIntOrDefault("MAX_EVENTS", 500),
		},
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// カメラ設定の検証
	if c.Camera.FPS <= 0 || c.Camera.FPS > 60 {
		return fmt.Errorf("無効なFPS値: %d", c.Camera.FPS)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.HLSSegmentSeconds <= 0 {
		return fmt.Errorf("無効なHLSセグメント長: %d", c.Camera.HLSSegmentSeconds)
	}
	if c.Camera.HLSListSize <= 0 {
		return fmt.Errorf("無効なHLSリストサイズ: %d", c.Camera.HLSListSize)
	}
	if c.Camera.AudioEnabled && c.Camera.AudioDevice == "" {
		return fmt.Errorf("音声が有効ですがALSAデバイスが未設定です")
	}

	// ストレージ設定の検証
	if c.Storage.ClipsDir == "" || c.Storage.HLSDir == "" || c.Storage.ThumbnailsDir == "" {
		return fmt.Errorf("ストレージディレクトリが未設定です")
	}
	if c.Storage.GalleryPageSize <= 0 {
		return fmt.Errorf("無効なギャラリーページサイズ: %d", c.Storage.GalleryPageSize)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// PlaylistPath はHLSプレイリストのパスを返す
func (c *Config) PlaylistPath() string {
	return filepath.Join(c.Storage.HLSDir, "stream.m3u8")
}

// EnsureDirectories は必要なディレクトリを作成する
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.ClipsDir, c.Storage.HLSDir, c.Storage.ThumbnailsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("ディレクトリの作成に失敗 (%s): %w", dir, err)
		}
	}
	return nil
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
