// Package camera カメラパイプラインと動体検知を担う
//
// # 責務
// - rpicam-vid と ffmpeg によるHLSライブ配信パイプラインの起動・監視
// - 検知用低解像度MJPEGフレームの取り出しと配信
// - 連続フレームの輝度差分による動体検知
// - HLSプレイリストからの有効セグメント一覧の取得
// - パイプライン前提条件（コマンド・デバイス）の確認
//
// # 仕様
// - Pipeline: rpicam-vid の生H.264を ffmpeg に渡し、HLS出力と
//   image2pipe のMJPEG出力を同時に生成する（カメラは1プロセスで占有）
// - Detector: 連続フレームの平均輝度差分をしきい値と比較する
// - Supervisor: パイプラインの再起動・バックオフ・状態報告を統合する
// - Thread-safe な操作をサポート
//
// # 前提要件
//   - rpicam-apps: カメラキャプチャに使用
//     Raspberry Pi OS: sudo apt install rpicam-apps
//   - ffmpeg: HLS生成とフレーム取り出しに使用
//     Raspberry Pi OS: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
