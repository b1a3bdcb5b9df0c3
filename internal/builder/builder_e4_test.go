package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christophcharles/Collomatique-sub005/internal/ast"
	"github.com/christophcharles/Collomatique-sub005/internal/builder"
	"github.com/christophcharles/Collomatique-sub005/internal/lexer"
	"github.com/christophcharles/Collomatique-sub005/internal/parser"
	"github.com/christophcharles/Collomatique-sub005/internal/sema"
	"github.com/christophcharles/Collomatique-sub005/internal/testhost"
	"github.com/christophcharles/Collomatique-sub005/internal/value"
)

// e4 scenario constants, grounded on original_source/collo-ml/src/problem/
// tests/complete_interrogation_scheduling.rs's Var::StudentWithTeacher:
// 11 students, 12 teachers grouped into 3 subjects of 4 consecutive
// teachers each, 3 weeks.
const (
	e4Students = 11
	e4Teachers = 12
	e4Weeks    = 3
	e4Subjects = 3
)

// studentWithTeacherFixer mirrors EvalVar::fix: any (student, teacher,
// week) tuple outside the declared ranges is pinned to 0 rather than left
// as a free binary, since the three constraint functions below only ever
// range over valid indices and nothing else should introduce a variable.
func studentWithTeacherFixer(args []value.Value) (float64, bool) {
	s, _ := value.AsInt(args[0])
	t, _ := value.AsInt(args[1])
	w, _ := value.AsInt(args[2])
	if s < 0 || s >= e4Students || t < 0 || t >= e4Teachers || w < 0 || w >= e4Weeks {
		return 0, true
	}
	return 0, false
}

func newE4Env() *testhost.Env {
	return testhost.New().DeclareVariable(
		"StudentWithTeacher",
		[]string{"Int", "Int", "Int"},
		0, 1, true,
		studentWithTeacherFixer,
	)
}

// e4Source is the Go-DSL port of complete_interrogation_scheduling.rs's
// three `pub let` constraint functions. The Rust fixture comprehends over
// two `for` clauses at once (`for s in .. for w in ..`); this grammar's
// ListComprehension carries a single Var, so the cartesian product is
// built instead with nested forall/sum, which type-checks to the same
// per-combination conjunction (sema.checkForallSum types a forall of
// foralls as one Constraint, and eval's evalForall concatenates every
// inner instance into that one Constraint value).
const e4Source = `
pub let one_teacher_per_week() -> Constraint =
    forall s in [0..11] {
        forall w in [0..3] {
            sum t in [0..12] { $StudentWithTeacher(s, t, w) } === 1
        }
    };

pub let each_subject_once() -> Constraint =
    forall s in [0..11] {
        (sum t in [0..4] { sum w in [0..3] { $StudentWithTeacher(s, t, w) } }) === 1
        and (sum t in [4..8] { sum w in [0..3] { $StudentWithTeacher(s, t, w) } }) === 1
        and (sum t in [8..12] { sum w in [0..3] { $StudentWithTeacher(s, t, w) } }) === 1
    };

pub let max_one_student_per_teacher() -> Constraint =
    forall t in [0..12] {
        forall w in [0..3] {
            sum s in [0..11] { $StudentWithTeacher(s, t, w) } <== 1
        }
    };
`

func analyzeE4(t *testing.T) (*testhost.Env, *sema.Program) {
	t.Helper()
	env := newE4Env()
	require.Empty(t, sema.CheckHostSchema(env))

	toks, lexErrs := lexer.New("colles", []byte(e4Source)).Scan()
	require.Empty(t, lexErrs)
	file, parseErrs := parser.New("colles", toks).Parse()
	require.Empty(t, parseErrs)

	a := sema.New(env)
	prog := a.Analyze(map[string]*ast.File{"colles": file})
	require.Empty(t, a.Errors())
	return env, prog
}

// TestBuildE4FullCollesScheduling is spec.md §8's E4 scenario: build the
// full three-constraint-family problem, check that it has exactly one
// binary variable per (student, teacher, week) combination, and check a
// hand-constructed assignment over those variables against the three
// properties the Rust fixture checks against a solver-produced
// assignment. Actually solving the resulting ILP is out of scope (no CBC
// dependency in this module), and the emitted constraints are not
// evaluated against the hand-built assignment.
func TestBuildE4FullCollesScheduling(t *testing.T) {
	env, prog := analyzeE4(t)

	prob, err := builder.New(env, prog).Build([]builder.ConstraintBinding{
		{Module: "colles", Name: "one_teacher_per_week"},
		{Module: "colles", Name: "each_subject_once"},
		{Module: "colles", Name: "max_one_student_per_teacher"},
	})
	require.NoError(t, err)

	// Every valid (student, teacher, week) combination must materialize
	// as exactly one binary variable; nothing else.
	require.Len(t, prob.Variables, e4Students*e4Teachers*e4Weeks)
	for _, v := range prob.Variables {
		assert.Equal(t, "StudentWithTeacher", v.Name)
		assert.True(t, v.IsInteger)
		assert.Equal(t, 0.0, v.DomainMin)
		assert.Equal(t, 1.0, v.DomainMax)
	}

	assign := feasibleE4Assignment()
	verifyOneTeacherPerWeek(t, prob, assign)
	verifyEachSubjectOnce(t, prob, assign)
	verifyAtMostOneStudentPerTeacher(t, prob, assign)
}

// feasibleE4Assignment hand-builds one assignment satisfying all three
// families: student s meets subject's teacher group in week (s+subject)
// mod 3, at teacher slot s mod 4 within that group. Since mod 3 and mod 4
// are coprime, (teacher, week) determines s mod 12 uniquely by CRT, and
// e4Students (11) < 12, so at most one student lands on any (teacher,
// week) pair.
func feasibleE4Assignment() map[[3]int]bool {
	assign := map[[3]int]bool{}
	for s := 0; s < e4Students; s++ {
		for subject := 0; subject < e4Subjects; subject++ {
			week := (s + subject) % e4Weeks
			teacher := subject*4 + s%4
			assign[[3]int{s, teacher, week}] = true
		}
	}
	return assign
}

func varArgs(v builder.Variable) (student, teacher, week int) {
	s, _ := value.AsInt(v.Args[0])
	t, _ := value.AsInt(v.Args[1])
	w, _ := value.AsInt(v.Args[2])
	return int(s), int(t), int(w)
}

func verifyOneTeacherPerWeek(t *testing.T, prob *builder.Problem, assign map[[3]int]bool) {
	t.Helper()
	count := map[[2]int]int{} // (student, week) -> #teachers assigned
	for _, v := range prob.Variables {
		s, tc, w := varArgs(v)
		if assign[[3]int{s, tc, w}] {
			count[[2]int{s, w}]++
		}
	}
	for s := 0; s < e4Students; s++ {
		for w := 0; w < e4Weeks; w++ {
			assert.Equal(t, 1, count[[2]int{s, w}], "student %d week %d", s, w)
		}
	}
}

func verifyEachSubjectOnce(t *testing.T, prob *builder.Problem, assign map[[3]int]bool) {
	t.Helper()
	count := map[[2]int]int{} // (student, subject) -> #(teacher,week) occurrences
	for _, v := range prob.Variables {
		s, tc, w := varArgs(v)
		if assign[[3]int{s, tc, w}] {
			count[[2]int{s, tc / 4}]++
		}
	}
	for s := 0; s < e4Students; s++ {
		for subject := 0; subject < e4Subjects; subject++ {
			assert.Equal(t, 1, count[[2]int{s, subject}], "student %d subject %d", s, subject)
		}
	}
}

func verifyAtMostOneStudentPerTeacher(t *testing.T, prob *builder.Problem, assign map[[3]int]bool) {
	t.Helper()
	count := map[[2]int]int{} // (teacher, week) -> #students assigned
	for _, v := range prob.Variables {
		s, tc, w := varArgs(v)
		if assign[[3]int{s, tc, w}] {
			count[[2]int{tc, w}]++
		}
	}
	for tc := 0; tc < e4Teachers; tc++ {
		for w := 0; w < e4Weeks; w++ {
			assert.LessOrEqual(t, count[[2]int{tc, w}], 1, "teacher %d week %d", tc, w)
		}
	}
}

// TestE4VariableFixedOutsideDomain exercises host.VariableInstance's
// FixedTo mechanism directly (not reachable through e4Source, since every
// range literal there stays in-bounds): an out-of-range tuple must come
// back pinned to 0, matching EvalVar::fix in the Rust fixture.
func TestE4VariableFixedOutsideDomain(t *testing.T) {
	env := newE4Env()
	inst, err := env.VariableInstance("StudentWithTeacher", []value.Value{value.Int(0), value.Int(0), value.Int(99)})
	require.NoError(t, err)
	require.NotNil(t, inst.FixedTo)
	assert.Equal(t, 0.0, *inst.FixedTo)

	inst, err = env.VariableInstance("StudentWithTeacher", []value.Value{value.Int(3), value.Int(5), value.Int(1)})
	require.NoError(t, err)
	assert.Nil(t, inst.FixedTo)
}
