// Package server は、HTTPサーバーとWebページの配信を管理します。
//
// このパッケージは、ライブ配信ページ・クリップギャラリー・設定ページの
// 提供と、HLSセグメント/クリップ/サムネイルの静的配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - ページとAPIのルーティング
//   - HLSストリームとメディアファイルの配信
//   - 設定フォームとクリップ削除の処理
//   - コンポーネント状態の報告
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - HTMLテンプレートはバイナリに埋め込み
//   - グレースフルシャットダウンに対応
package server
