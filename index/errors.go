package index

import "github.com/cockroachdb/errors"

// ErrInvalidConfig 建構參數不合法時回傳（例如 degree < 3、maxLevel <= 0）
var ErrInvalidConfig = errors.New("invalid index configuration")

// InvalidConfigf 包裝 ErrInvalidConfig 並附上說明，呼叫端可用 errors.Is 判斷
func InvalidConfigf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}

// MustCheck 在 invariant 模式下使用：結構檢查失敗即 panic
func MustCheck(c Checker, op string, key K) {
	if err := c.Check(); err != nil {
		panic(errors.Wrapf(err, "after %s(%d)", op, key))
	}
}
