package errors

import "errors"

// ── 错误类别 ──
// 业务错误统一通过 fmt.Errorf("%w: ...", Kind) 包装其中一种类别，
// Handler 层先匹配具体业务错误，未命中时按类别兜底映射 HTTP 状态码。

var (
	ErrNotFound         = errors.New("资源不存在")
	ErrInvalidState     = errors.New("当前状态不允许该操作")
	ErrConflict         = errors.New("操作冲突")
	ErrCapacityExceeded = errors.New("名额已满")
	ErrValidation       = errors.New("参数校验失败")
	ErrUnauthorized     = errors.New("未认证")
	ErrForbidden        = errors.New("无权限")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Kind 返回 err 所属的错误类别，未知错误返回 nil
func Kind(err error) error {
	for _, k := range []error{
		ErrNotFound,
		ErrInvalidState,
		ErrConflict,
		ErrCapacityExceeded,
		ErrValidation,
		ErrUnauthorized,
		ErrForbidden,
		ErrOptimisticLock,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
