package main

import (
	"context"
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
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// 保存先のディレクトリを用意する
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ディレクトリの作成に失敗しました: %v", err)
	}

	// ユーザー設定を読み込む
	store := settings.NewStore(cfg.Storage.SettingsFile)

	// イベント履歴を開く
	// 開けなくてもカメラと配信は動かし続ける
	events, err := eventlog.Open(cfg.Storage.EventDBFile, cfg.Recording.MaxEvents)
	if err != nil {
		log.Printf("イベント履歴を開けませんでした: %v", err)
		events = nil
	}

	ctx := context.Background()

	// クリップ一覧を作成
	clipStore := clips.NewStore(cfg.Storage.ClipsDir, cfg.Storage.ThumbnailsDir)
	if err := clipStore.Start(ctx); err != nil {
		log.Printf("クリップ監視の開始に失敗しました: %v", err)
	}

	// 録画とカメラ監視を起動
	rec := recorder.New(cfg, store, events)
	supervisor := camera.NewSupervisor(cfg, store, rec.Trigger, rec.Recording)
	if err := supervisor.Start(ctx); err != nil {
		log.Printf("カメラの起動に失敗しました: %v", err)
	}

	// サーバーを起動
	srv := server.New(cfg, store, clipStore, events, supervisor, rec)
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
