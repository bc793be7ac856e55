package postgres

import "errors"

// ErrInvalidTx はこのパッケージ以外で生成されたトランザクションが
// 渡された場合のエラー
var ErrInvalidTx = errors.New("postgresのトランザクションではありません")
