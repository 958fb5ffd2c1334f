package camera

import "sync"

// Status はコンポーネントの動作状態を表す
// 値はステータスページで使う信号色と一致させている
type Status string

const (
	StatusStarting Status = "yellow" // 起動中・再起動中
	StatusRunning  Status = "green"  // 正常稼働中
	StatusError    Status = "red"    // エラーで停止
)

// FrameBuffer は最新フレームを保持する
// スナップショット配信用に、ストリームの直近のJPEGを1枚だけ持つ
type FrameBuffer struct {
	latest []byte
	mu     sync.RWMutex
}

// Store は最新フレームを保存する
func (b *FrameBuffer) Store(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = make([]byte, len(frame))
	copy(b.latest, frame)
}

// Latest は最新フレームのコピーを返す
// まだフレームが届いていない場合は false を返す
func (b *FrameBuffer) Latest() ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.latest == nil {
		return nil, false
	}

	frame := make([]byte, len(b.latest))
	copy(frame, b.latest)
	return frame, true
}
