package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Probe はパイプラインの前提条件を確認する
type Probe interface {
	// Check は必要なコマンドとデバイスが利用可能か確認する
	Check(ctx context.Context) error

	// IsDeviceAvailable はカメラデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool
}

// ExecProbe は実際のコマンド・デバイスを確認するProbe実装
type ExecProbe struct {
	device string
}

// NewExecProbe は新しいExecProbeを作成する
func NewExecProbe(device string) Probe {
	return &ExecProbe{device: device}
}

// Check は必要なコマンドとデバイスが利用可能か確認する
func (p *ExecProbe) Check(ctx context.Context) error {
	for _, command := range []string{"rpicam-vid", "ffmpeg"} {
		if _, err := exec.LookPath(command); err != nil {
			return fmt.Errorf("%s が見つかりません。インストールしてください: %w", command, err)
		}
	}

	if !p.IsDeviceAvailable(ctx, p.device) {
		return fmt.Errorf("カメラデバイスが利用できません: %s", p.device)
	}

	return nil
}

// IsDeviceAvailable はカメラデバイスが利用可能かチェックする
func (p *ExecProbe) IsDeviceAvailable(_ context.Context, device string) bool {
	// デバイスファイルの存在確認
	if _, err := os.Stat(device); os.IsNotExist(err) {
		return false
	}

	// 読み取り権限チェック
	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer func() {
		_ = file.Close()
	}()

	return true
}

// MockProbe はテスト用のモックProbe実装
type MockProbe struct {
	CheckErr  error
	Available bool
}

// NewMockProbe は新しいMockProbeを作成する
func NewMockProbe() *MockProbe {
	return &MockProbe{Available: true}
}

// Check はモックの確認結果を返す
func (m *MockProbe) Check(_ context.Context) error {
	return m.CheckErr
}

// IsDeviceAvailable はモックの利用可能状態を返す
func (m *MockProbe) IsDeviceAvailable(_ context.Context, _ string) bool {
	return m.Available
}
