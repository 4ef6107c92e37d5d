package render

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pagelift/pagelift-backend/internal/snapshot"
)

func testContext() Context {
	return Context{
		UserID:        uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Roles:         []string{"editor"},
		Authenticated: true,
		Now:           time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
		Language:      "en",
		Attributes:    map[string]string{"plan": "pro"},
	}
}

func TestEvaluateCondition(t *testing.T) {
	rctx := testContext()
	cases := []struct {
		name string
		cond *snapshot.Condition
		want bool
	}{
		{"nil condition visible", nil, true},
		{"authenticated", &snapshot.Condition{Operator: snapshot.OpAuthenticated}, true},
		{"role match", &snapshot.Condition{Operator: snapshot.OpRoleIs, Value: "editor"}, true},
		{"role miss", &snapshot.Condition{Operator: snapshot.OpRoleIs, Value: "admin"}, false},
		{"equals attribute", &snapshot.Condition{Operator: snapshot.OpEquals, Field: "plan", Value: "pro"}, true},
		{"equals builtin language", &snapshot.Condition{Operator: snapshot.OpEquals, Field: "language", Value: "en"}, true},
		{"not equals", &snapshot.Condition{Operator: snapshot.OpNotEquals, Field: "plan", Value: "free"}, true},
		{"not equals on absent field", &snapshot.Condition{Operator: snapshot.OpNotEquals, Field: "ghost", Value: "x"}, true},
		{"in hit", &snapshot.Condition{Operator: snapshot.OpIn, Field: "plan", Values: []string{"free", "pro"}}, true},
		{"in miss", &snapshot.Condition{Operator: snapshot.OpIn, Field: "plan", Values: []string{"enterprise"}}, false},
		{"in on absent field", &snapshot.Condition{Operator: snapshot.OpIn, Field: "ghost", Values: []string{"x"}}, false},
		{"before future", &snapshot.Condition{Operator: snapshot.OpBefore, Value: "2027-01-01T00:00:00Z"}, true},
		{"after past", &snapshot.Condition{Operator: snapshot.OpAfter, Value: "2020-01-01T00:00:00Z"}, true},
		{"after future", &snapshot.Condition{Operator: snapshot.OpAfter, Value: "2030-01-01T00:00:00Z"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateCondition(tc.cond, rctx)
			if err != nil {
				t.Fatalf("EvaluateCondition: %v", err)
			}
			if got != tc.want {
				t.Fatalf("want=%v got=%v", tc.want, got)
			}
		})
	}
}

func TestEvaluateConditionAnonymous(t *testing.T) {
	rctx := Context{Now: time.Now(), Language: "en"}
	got, err := EvaluateCondition(&snapshot.Condition{Operator: snapshot.OpAuthenticated}, rctx)
	if err != nil {
		t.Fatalf("EvaluateCondition: %v", err)
	}
	if got {
		t.Fatal("anonymous context passed authenticated condition")
	}
}

func TestEvaluateConditionErrors(t *testing.T) {
	rctx := testContext()
	if _, err := EvaluateCondition(&snapshot.Condition{Operator: "matches"}, rctx); err == nil {
		t.Fatal("expected unknown operator error")
	}
	if _, err := EvaluateCondition(&snapshot.Condition{Operator: snapshot.OpBefore, Value: "soon"}, rctx); err == nil {
		t.Fatal("expected timestamp parse error")
	}
}
