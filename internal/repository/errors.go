package repository

import "errors"

// 見つからないを統一
var ErrNotFound = errors.New("not found")

// 楽観ロック失敗・一意制約違反（同時更新）
var ErrConflict = errors.New("conflict")
