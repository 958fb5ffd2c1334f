package camera

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"rusuban/internal/config"
	"rusuban/internal/settings"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second

	// フレームがこの時間届かなければパイプラインを作り直す
	staleFrameTimeout = 30 * time.Second
)

// Supervisor はカメラパイプラインと動体検知のライフサイクルを統合管理する
//
// パイプラインが異常終了した場合は指数バックオフで再起動し、
// その間もWebサーバーは動作を続ける
type Supervisor struct {
	cfg      *config.Config
	probe    Probe
	detector *Detector

	frameBuffer FrameBuffer
	lastFrameAt atomic.Int64 // 最終フレーム受信時刻 (UnixNano)

	status Status
	mu     sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor は新しいSupervisorを作成する
func NewSupervisor(cfg *config.Config, store *settings.Store, trigger TriggerFunc, busy func() bool) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		probe:    NewExecProbe(cfg.Camera.Device),
		detector: NewDetector(store, trigger, busy),
		status:   StatusStarting,
	}
}

// SetProbe はProbeを差し替える（テスト用）
func (s *Supervisor) SetProbe(probe Probe) {
	s.probe = probe
}

// Start はスーパーバイザーを開始する
func (s *Supervisor) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx)

	return nil
}

// Stop はスーパーバイザーを停止する
func (s *Supervisor) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	// ワーカーゴルーチンの終了を短いタイムアウトで待機
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(3 * time.Second):
		return fmt.Errorf("スーパーバイザーの停止がタイムアウトしました")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStatus は現在の状態を取得する
func (s *Supervisor) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// LatestFrame はスナップショット用に最新の検知フレームを返す
func (s *Supervisor) LatestFrame() ([]byte, bool) {
	return s.frameBuffer.Latest()
}

// setStatus は状態を更新する
func (s *Supervisor) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// run はパイプラインを起動し、失敗したら再起動し続ける
func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		s.setStatus(StatusStarting)

		if err := s.probe.Check(ctx); err != nil {
			log.Printf("パイプラインの前提条件を満たしていません: %v", err)
			s.setStatus(StatusError)
			if !s.sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		startedAt := time.Now()
		err := s.runPipeline(ctx)
		if ctx.Err() != nil {
			return
		}

		log.Printf("パイプラインが停止しました。再起動します: %v", err)
		s.setStatus(StatusError)

		// 長時間安定稼働していた場合はバックオフをリセット
		if time.Since(startedAt) > time.Minute {
			backoff = initialBackoff
		}
		if !s.sleep(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// runPipeline は1回分のパイプライン実行を行う
// フレームの配送・動体検知・フレーム途絶の監視を束ねる
func (s *Supervisor) runPipeline(ctx context.Context) error {
	pipeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipeline := NewPipeline(s.cfg.Camera, s.cfg.Storage.HLSDir)
	detectorChan := make(chan []byte, 10)

	var workers sync.WaitGroup

	// フレーム配送: パイプライン → 最新フレーム保持 + 検知チャンネル
	workers.Add(1)
	go func() {
		defer workers.Done()
		defer close(detectorChan)

		for {
			select {
			case <-pipeCtx.Done():
				return
			case frame, ok := <-pipeline.FrameChannel():
				if !ok {
					return
				}

				// 最初のフレーム到着をもって稼働中とみなす
				if s.GetStatus() != StatusRunning {
					log.Println("カメラパイプラインが稼働を開始しました")
					s.setStatus(StatusRunning)
				}

				s.lastFrameAt.Store(time.Now().UnixNano())
				s.frameBuffer.Store(frame)
				publishFrame(pipeCtx, detectorChan, frame)
			}
		}
	}()

	// 動体検知
	workers.Add(1)
	go func() {
		defer workers.Done()
		s.detector.Run(pipeCtx, detectorChan)
	}()

	// フレーム途絶の監視: 一定時間フレームが来なければパイプラインを畳む
	s.lastFrameAt.Store(time.Now().UnixNano())
	workers.Add(1)
	go func() {
		defer workers.Done()

		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-pipeCtx.Done():
				return
			case <-ticker.C:
				last := time.Unix(0, s.lastFrameAt.Load())
				if time.Since(last) > staleFrameTimeout {
					log.Printf("フレームが %s 以上届いていません。パイプラインを再起動します", staleFrameTimeout)
					cancel()
					return
				}
			}
		}
	}()

	err := pipeline.Run(pipeCtx)

	cancel()
	workers.Wait()

	return err
}

// sleep はキャンセル可能な待機を行う
// コンテキストがキャンセルされた場合は false を返す
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// nextBackoff は次のバックオフ時間を計算する
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}
