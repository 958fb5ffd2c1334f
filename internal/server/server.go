package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"rusuban/internal/camera"
	"rusuban/internal/clips"
	"rusuban/internal/config"
	"rusuban/internal/eventlog"
	"rusuban/internal/settings"
)

// StreamSource はライブ配信側の状態とスナップショットを提供する
type StreamSource interface {
	// GetStatus は配信パイプラインの状態を取得する
	GetStatus() camera.Status

	// LatestFrame は最新の検知フレームを返す
	LatestFrame() ([]byte, bool)
}

// ClipRecorder はクリップ録画の状態を提供する
type ClipRecorder interface {
	// Recording は録画が進行中かどうかを返す
	Recording() bool
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	handler    *Handler
}

// Handler は各エンドポイントの実装を保持する
type Handler struct {
	config    *config.Config
	settings  *settings.Store
	clips     *clips.Store
	events    *eventlog.Log
	stream    StreamSource
	recorder  ClipRecorder
	snapshots *cache.Cache
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, store *settings.Store, clipStore *clips.Store, events *eventlog.Log, stream StreamSource, rec ClipRecorder) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(loadTemplates())

	handler := &Handler{
		config:    cfg,
		settings:  store,
		clips:     clipStore,
		events:    events,
		stream:    stream,
		recorder:  rec,
		snapshots: cache.New(cfg.Server.SnapshotTTL, 2*cfg.Server.SnapshotTTL),
	}

	srv := &Server{
		config:  cfg,
		engine:  engine,
		handler: handler,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	srv.setupRoutes()
	return srv
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	h := s.handler

	// ページ
	s.engine.GET("/", h.Index)
	s.engine.GET("/gallery", h.Gallery)
	s.engine.GET("/play/:filename", h.Play)
	s.engine.GET("/settings", h.SettingsPage)
	s.engine.POST("/settings", h.SettingsUpdate)
	s.engine.GET("/events", h.EventsPage)

	// API
	s.engine.GET("/status", h.Status)
	s.engine.GET("/api/status", h.Status)
	s.engine.GET("/api/events", h.Events)
	s.engine.POST("/delete/:filename", h.Delete)
	s.engine.GET("/snapshot.jpg", h.Snapshot)
	s.engine.GET("/health", h.Health)

	// メディア配信
	// ライブ配信のセグメントはキャッシュさせない
	hls := s.engine.Group("/hls", noCacheMiddleware())
	hls.Static("/", s.config.Storage.HLSDir)

	s.engine.Static("/clips", s.config.Storage.ClipsDir)
	s.engine.Static("/thumbnails", s.config.Storage.ThumbnailsDir)
}

// noCacheMiddleware はライブ配信用のキャッシュ禁止ヘッダーを付与する
func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Next()
	}
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}

// Engine はテスト用にルーター本体を返す
func (s *Server) Engine() http.Handler {
	return s.engine
}
