package fault

import (
	"errors"
	"fmt"
)

// 中文说明：
// 统一的失败分类。各外部协作方（行情、推理模型、交易所、存储）在自身边界把
// 错误归类为下述 Kind，编排层只根据 Kind 决定本轮周期如何降级或中止。

type Kind int

const (
	KindUnknown Kind = iota
	// KindDataUnavailable 必需行情信号缺失，周期在调用模型前中止。
	KindDataUnavailable
	// KindOracleFailure 推理调用失败/超时/输出不符合 schema。
	KindOracleFailure
	// KindExecutionError 交易所下单失败，降级为 hold 等价结果。
	KindExecutionError
	// KindPersistenceError 存储不可达或外键不满足，允许致命。
	KindPersistenceError
)

func (k Kind) String() string {
	switch k {
	case KindDataUnavailable:
		return "data_unavailable"
	case KindOracleFailure:
		return "oracle_failure"
	case KindExecutionError:
		return "execution_error"
	case KindPersistenceError:
		return "persistence_error"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func DataUnavailable(op string, err error) error {
	return &Error{Kind: KindDataUnavailable, Op: op, Err: err}
}

func OracleFailure(op string, err error) error {
	return &Error{Kind: KindOracleFailure, Op: op, Err: err}
}

func ExecutionError(op string, err error) error {
	return &Error{Kind: KindExecutionError, Op: op, Err: err}
}

func PersistenceError(op string, err error) error {
	return &Error{Kind: KindPersistenceError, Op: op, Err: err}
}

func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
