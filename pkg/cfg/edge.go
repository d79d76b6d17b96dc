package cfg

import "github.com/ogclass/classpool/pkg/constant"

// EdgeKind classifies an edge between two blocks.
type EdgeKind int

const (
	EdgeFallthrough EdgeKind = iota
	EdgeCondTrue
	EdgeCondFalse
	EdgeJump
	EdgeSwitchCase
	EdgeException
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeFallthrough:
		return "fallthrough"
	case EdgeCondTrue:
		return "conditional-true"
	case EdgeCondFalse:
		return "conditional-false"
	case EdgeJump:
		return "jump"
	case EdgeSwitchCase:
		return "switch-case"
	case EdgeException:
		return "exception"
	default:
		return "unknown"
	}
}

// Edge is a directed, typed connection between two blocks. CaseLabel is
// meaningful only for EdgeSwitchCase (nil means the switch's default case).
// ExceptionClass is meaningful only for EdgeException (nil means a
// catch-all handler, the `finally` encoding).
type Edge struct {
	From           *Block
	To             *Block
	Kind           EdgeKind
	CaseLabel      *int32
	ExceptionClass *constant.Class
}
