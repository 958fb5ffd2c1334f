package camera

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// scanFrames はMJPEGバイトストリームをJPEGフレームに分割してチャンネルへ送る
// 読み取り元がクローズされるかコンテキストがキャンセルされるまでブロックする
func scanFrames(ctx context.Context, r io.Reader, frameChan chan []byte) error {
	buffer := make([]byte, 64*1024)
	frameBuffer := bytes.Buffer{}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := r.Read(buffer)
		if n > 0 {
			frameBuffer.Write(buffer[:n])
			emitFrames(ctx, &frameBuffer, frameChan)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// emitFrames はバッファから完全なJPEGフレームを取り出して送信する
func emitFrames(ctx context.Context, frameBuffer *bytes.Buffer, frameChan chan []byte) {
	data := frameBuffer.Bytes()
	for {
		// JPEGの開始マーカー（FF D8）を探す
		startIdx := bytes.Index(data, []byte{0xFF, 0xD8})
		if startIdx == -1 {
			break
		}

		// JPEGの終了マーカー（FF D9）を探す
		endIdx := bytes.Index(data[startIdx+2:], []byte{0xFF, 0xD9})
		if endIdx == -1 {
			// 完全なフレームがまだない
			if startIdx > 0 {
				// マーカー前の不要なデータを削除
				remaining := data[startIdx:]
				frameBuffer.Reset()
				frameBuffer.Write(remaining)
			}
			break
		}

		// 完全なJPEGフレームを抽出
		endIdx += startIdx + 2 + 2 // マーカーのサイズを含める
		frame := make([]byte, endIdx-startIdx)
		copy(frame, data[startIdx:endIdx])

		publishFrame(ctx, frameChan, frame)

		// 処理済みデータを削除
		remaining := data[endIdx:]
		frameBuffer.Reset()
		if len(remaining) == 0 {
			break
		}
		frameBuffer.Write(remaining)
		data = frameBuffer.Bytes()
	}
}

// publishFrame はフレームをチャンネルへ送信する
// チャンネルがフルの場合は最も古いフレームを破棄して最新を優先する
func publishFrame(ctx context.Context, frameChan chan []byte, frame []byte) {
	select {
	case frameChan <- frame:
		return
	case <-ctx.Done():
		return
	default:
	}

	// チャンネルがフルの場合は古いフレームを破棄
	select {
	case <-frameChan:
	default:
	}
	select {
	case frameChan <- frame:
	case <-ctx.Done():
	}
}
