package render

import (
	"fmt"
	"time"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

// EvaluateCondition decides section visibility against the explicit render
// context. A nil condition is visible. Unknown operators and unparseable
// timestamps return an error; callers fail closed by hiding the section.
func EvaluateCondition(cond *snapshot.Condition, rctx Context) (bool, error) {
	if cond == nil {
		return true, nil
	}
	switch cond.Operator {
	case snapshot.OpAuthenticated:
		return rctx.Authenticated, nil

	case snapshot.OpRoleIs:
		return rctx.HasRole(cond.Value), nil

	case snapshot.OpEquals:
		v, ok := rctx.Attribute(cond.Field)
		return ok && v == cond.Value, nil

	case snapshot.OpNotEquals:
		v, ok := rctx.Attribute(cond.Field)
		return !ok || v != cond.Value, nil

	case snapshot.OpIn:
		v, ok := rctx.Attribute(cond.Field)
		if !ok {
			return false, nil
		}
		for _, candidate := range cond.Values {
			if v == candidate {
				return true, nil
			}
		}
		return false, nil

	case snapshot.OpBefore, snapshot.OpAfter:
		at, err := time.Parse(time.RFC3339, cond.Value)
		if err != nil {
			return false, fmt.Errorf("condition timestamp %q: %w", cond.Value, err)
		}
		if cond.Operator == snapshot.OpBefore {
			return rctx.Now.Before(at), nil
		}
		return rctx.Now.After(at), nil
	}
	return false, fmt.Errorf("unknown condition operator %q", cond.Operator)
}
