package camera

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"time"

	"github.com/nfnt/resize"

	"rusuban/internal/settings"
)

// TriggerFunc は動体検知時に呼び出されるコールバック
// score は検知時の平均輝度差分
type TriggerFunc func(ctx context.Context, score float64)

// Detector は連続フレームの輝度差分による動体検知を行う
//
// アルゴリズムは単純なフレーム差分: 直前フレームとの平均絶対輝度差が
// しきい値（105 - UI感度）を超えたら動きとみなす
type Detector struct {
	settings *settings.Store
	trigger  TriggerFunc
	busy     func() bool // 録画中かどうかの判定

	compareWidth uint // 比較用に正規化する幅

	prevFrame      *image.Gray
	motionDetected time.Time
}

// NewDetector は新しいDetectorを作成する
func NewDetector(store *settings.Store, trigger TriggerFunc, busy func() bool) *Detector {
	return &Detector{
		settings:     store,
		trigger:      trigger,
		busy:         busy,
		compareWidth: 160,
	}
}

// Run はフレームチャンネルを消費して動体検知を行う
// チャンネルのクローズかコンテキストのキャンセルで終了する
func (d *Detector) Run(ctx context.Context, frames <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return

		case frame, ok := <-frames:
			if !ok {
				return
			}
			d.processFrame(ctx, frame)
		}
	}
}

// processFrame は1フレームを処理する
func (d *Detector) processFrame(ctx context.Context, frame []byte) {
	gray, err := d.decodeToGray(frame)
	if err != nil {
		log.Printf("検知フレームのデコードに失敗: %v", err)
		return
	}

	prev := d.prevFrame
	d.prevFrame = gray

	if prev == nil {
		return
	}

	// 録画中はフレームの追跡だけ行い、新たなトリガーは発火しない
	if d.busy() {
		return
	}

	current := d.settings.Get()
	score := meanAbsDiff(prev, gray)

	if score > current.RawThreshold() {
		if d.motionDetected.IsZero() {
			log.Printf("動きを検知しました (差分: %.2f)", score)
			d.motionDetected = time.Now()
			d.trigger(ctx, score)
		}
		return
	}

	// 静止状態がクリップ長を超えたら動体エピソードを終了する
	if !d.motionDetected.IsZero() && time.Since(d.motionDetected) > current.Duration() {
		d.motionDetected = time.Time{}
	}
}

// decodeToGray はJPEGフレームを比較用のグレースケール画像に変換する
func (d *Detector) decodeToGray(frame []byte) (*image.Gray, error) {
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}

	// 解像度の揺れを吸収するため固定幅に正規化する
	small := resize.Resize(d.compareWidth, 0, img, resize.NearestNeighbor)

	bounds := small.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(small.At(x, y)))
		}
	}

	return gray, nil
}

// meanAbsDiff は2枚のグレースケール画像の平均絶対輝度差を計算する
// サイズが異なる場合は重なる範囲のみ比較する
func meanAbsDiff(a, b *image.Gray) float64 {
	width := a.Bounds().Dx()
	if w := b.Bounds().Dx(); w < width {
		width = w
	}
	height := a.Bounds().Dy()
	if h := b.Bounds().Dy(); h < height {
		height = h
	}

	if width == 0 || height == 0 {
		return 0
	}

	var total float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			va := int(a.GrayAt(a.Bounds().Min.X+x, a.Bounds().Min.Y+y).Y)
			vb := int(b.GrayAt(b.Bounds().Min.X+x, b.Bounds().Min.Y+y).Y)
			diff := va - vb
			if diff < 0 {
				diff = -diff
			}
			total += float64(diff)
		}
	}

	return total / float64(width*height)
}
