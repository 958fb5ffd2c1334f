// Package main はRusubanサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"rusuban/internal/camera"
	"rusuban/internal/clips"
	"rusuban/internal/config"
	"rusuban/internal/eventlog"
	"rusuban/internal/recorder"
	"rusuban/internal/server"
	"rusuban/internal/settings"
)

func main() {
	// コマンドラインオプション
	var (
		host   = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port   = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		device = flag.String("device", "", "カメラデバイス (デフォルト: /dev/video0)")
		help   = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Rusuban")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ディレクトリの作成に失敗しました: %v", err)
	}

	// 各コンポーネントを組み立てる
	store := settings.NewStore(cfg.Storage.SettingsFile)

	events, err := eventlog.Open(cfg.Storage.EventDBFile, cfg.Recording.MaxEvents)
	if err != nil {
		log.Printf("イベント履歴を開けませんでした: %v", err)
		events = nil
	}

	ctx := context.Background()

	clipStore := clips.NewStore(cfg.Storage.ClipsDir, cfg.Storage.ThumbnailsDir)
	if err := clipStore.Start(ctx); err != nil {
		log.Printf("クリップ監視の開始に失敗しました: %v", err)
	}

	rec := recorder.New(cfg, store, events)
	supervisor := camera.NewSupervisor(cfg, store, rec.Trigger, rec.Recording)
	if err := supervisor.Start(ctx); err != nil {
		log.Printf("カメラの起動に失敗しました: %v", err)
	}

	// サーバーを起動
	srv := server.New(cfg, store, clipStore, events, supervisor, rec)
	log.Printf("Rusuban サーバーを起動します: %s", cfg.ServerAddress())
	srvErr := srv.Start(ctx)
	if srvErr != nil {
		log.Printf("サーバーの起動に失敗しました: %v", srvErr)
	}

	// 後始末
	if err := supervisor.Stop(ctx); err != nil {
		log.Printf("カメラの停止に失敗しました: %v", err)
	}
	clipStore.Stop()
	if events != nil {
		if err := events.Close(); err != nil {
			log.Printf("イベント履歴のクローズに失敗しました: %v", err)
		}
	}

	if srvErr != nil {
		os.Exit(1)
	}
}
