// Package dtree compiles a match expression's arms into a decision tree
// (C6, spec.md §4.6): a Maranget-style pattern matrix algorithm that groups
// rows by the constructor tested in each column, recurring into the
// specialized sub-matrix for every case. Unlike a plain "first match wins"
// interpreter, the tree records which arms are never reached (redundancy,
// MAT002) and reconstructs a human-readable witness for every combination
// of constructors the arms leave uncovered (exhaustiveness, MAT001).
package dtree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/types"
)

// Tree is the compiled form of a match's arms.
type Tree interface{ isTree() }

// Leaf selects arm Arm unconditionally.
type Leaf struct{ Arm int }

func (*Leaf) isTree() {}

// Fail marks a scrutinee shape no arm covers; Compile reports it as a
// missing case. The tree is a diagnostic artefact only: HIR lowering builds
// its own executable tree and never reads this one.
type Fail struct{}

func (*Fail) isTree() {}

// Case is one constructor (or literal) arm of a Switch.
type Case struct {
	Name  string // constructor or literal display name
	Def   cache.DefinitionInfoId
	Arity int
	Sub   Tree
}

// Switch tests one column of the matrix against Cases, falling through to
// Default when nothing matches and Default != nil. Occurrence labels the
// Switch by the branch indices taken from the root to reach it (a variant's
// declaration index, 0/1 for false/true, a literal's first-appearance index,
// or one past the last literal for a literal Default); it is not a path of
// field indices into the scrutinee.
type Switch struct {
	Occurrence []int
	Cases      []Case
	Default    Tree // nil when Cases already enumerate every constructor
}

func (*Switch) isTree() {}

// Guard wraps a leaf behind a runtime condition: if the guard fails at
// runtime, control falls through to Else (spec.md §4.6 "guarded arms are not
// proof of coverage").
type Guard struct {
	Arm  int
	Cond ast.Expr
	Else Tree
}

func (*Guard) isTree() {}

// Result is everything Compile produces.
type Result struct {
	Tree        Tree
	Missing     []string // witnesses for MAT001, one per uncovered shape found
	Unreachable []int    // arm indices never selected by Tree, for MAT002
}

type row struct {
	pats  []ast.Pattern
	cols  []types.Type
	arm   int
	guard ast.Expr
}

// Compile builds the decision tree for a match over a value of scrutType
// with the given arms, already type-checked by C4. mc supplies the variant
// sets of user-defined sum types so Compile knows the full set of
// constructors a column must cover to be exhaustive.
func Compile(mc *types.ModuleCache, scrutType types.Type, arms []ast.MatchArm) *Result {
	rows := make([]row, len(arms))
	for i, a := range arms {
		rows[i] = row{pats: []ast.Pattern{a.Pattern}, cols: []types.Type{scrutType}, arm: i, guard: a.Guard}
	}
	reached := map[int]bool{}
	tree, missing := compileMatrix(mc, rows, nil, reached)

	var unreachable []int
	for i := range arms {
		if !reached[i] {
			unreachable = append(unreachable, i)
		}
	}
	return &Result{Tree: tree, Missing: missing, Unreachable: unreachable}
}

func allWildcard(r row) bool {
	for _, p := range r.pats {
		switch p.(type) {
		case *ast.WildcardPattern, *ast.VarPattern:
			continue
		default:
			return false
		}
	}
	return true
}

// compileMatrix recursively specializes the pattern matrix one column at a
// time until every row reduces to a Leaf or the matrix runs dry (Fail).
func compileMatrix(mc *types.ModuleCache, rows []row, occ []int, reached map[int]bool) (Tree, []string) {
	if len(rows) == 0 {
		return &Fail{}, []string{""}
	}
	if allWildcard(rows[0]) {
		reached[rows[0].arm] = true
		if rows[0].guard == nil {
			return &Leaf{Arm: rows[0].arm}, nil
		}
		// A guarded row only conditionally covers this shape (spec.md §4.6):
		// fall through to the remaining rows when the guard fails at runtime,
		// and keep checking them for exhaustiveness too.
		elseTree, missing := compileMatrix(mc, rows[1:], occ, reached)
		return &Guard{Arm: rows[0].arm, Cond: rows[0].guard, Else: elseTree}, missing
	}

	col := firstConstructorColumn(rows)
	colType := types.Follow(mc, rows[0].cols[col])

	if ud, ok := colType.(*types.UserDefined); ok {
		info := mc.TypeInfoByID(ud.Id)
		if info != nil && info.Variants != nil {
			return compileSum(mc, rows, occ, col, info.Variants, reached)
		}
	}
	if _, ok := colType.(*types.Bool); ok {
		return compileBool(mc, rows, occ, col, reached)
	}
	return compileLiteral(mc, rows, occ, col, reached)
}

// firstConstructorColumn picks the leftmost column that still discriminates
// (spec.md §4.6 leaves the heuristic unspecified beyond "deterministic");
// leftmost-first matches the surface order a reader would scan the patterns
// in, same as the teacher's single-column compiler.
func firstConstructorColumn(rows []row) int {
	for col := range rows[0].pats {
		for _, r := range rows {
			switch r.pats[col].(type) {
			case *ast.WildcardPattern, *ast.VarPattern:
				continue
			default:
				return col
			}
		}
	}
	return 0
}

func compileSum(mc *types.ModuleCache, rows []row, occ []int, col int, variants []types.Variant, reached map[int]bool) (Tree, []string) {
	byCtor := map[string][]row{}
	var defaults []row
	for _, r := range rows {
		switch p := r.pats[col].(type) {
		case *ast.ConstructorPattern:
			byCtor[p.Constructor] = append(byCtor[p.Constructor], specializeCtor(r, col, p, variants))
		case *ast.WildcardPattern, *ast.VarPattern:
			defaults = append(defaults, dropColumn(r, col))
		default:
			defaults = append(defaults, dropColumn(r, col))
		}
	}

	var cases []Case
	var missing []string
	for _, v := range variants {
		sub := byCtor[v.Name]
		if len(sub) == 0 && len(defaults) == 0 {
			missing = append(missing, v.Name+wildcardArgs(len(v.Fields)))
			cases = append(cases, Case{Name: v.Name, Def: v.Def, Arity: len(v.Fields), Sub: &Fail{}})
			continue
		}
		combined := append(append([]row{}, sub...), expandDefaultsFor(defaults, v)...)
		subTree, subMissing := compileMatrix(mc, combined, append(occ, len(cases)), reached)
		missing = append(missing, subMissing...)
		cases = append(cases, Case{Name: v.Name, Def: v.Def, Arity: len(v.Fields), Sub: subTree})
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].Name < cases[j].Name })
	return &Switch{Occurrence: append([]int{}, occ...), Cases: cases}, missing
}

func expandDefaultsFor(defaults []row, v types.Variant) []row {
	out := make([]row, len(defaults))
	for i, d := range defaults {
		wilds := make([]ast.Pattern, len(v.Fields))
		for j := range wilds {
			wilds[j] = &ast.WildcardPattern{}
		}
		out[i] = row{
			pats:  append(append([]ast.Pattern{}, wilds...), d.pats...),
			cols:  append(append([]types.Type{}, v.Fields...), d.cols...),
			arm:   d.arm,
			guard: d.guard,
		}
	}
	return out
}

func specializeCtor(r row, col int, p *ast.ConstructorPattern, variants []types.Variant) row {
	var fieldTypes []types.Type
	for _, v := range variants {
		if v.Name == p.Constructor {
			fieldTypes = v.Fields
			break
		}
	}
	newPats := append(append([]ast.Pattern{}, p.Args...), without(r.pats, col)...)
	newCols := append(append([]types.Type{}, fieldTypes...), withoutTypes(r.cols, col)...)
	return row{pats: newPats, cols: newCols, arm: r.arm, guard: r.guard}
}

func dropColumn(r row, col int) row {
	return row{pats: without(r.pats, col), cols: withoutTypes(r.cols, col), arm: r.arm, guard: r.guard}
}

func without(pats []ast.Pattern, col int) []ast.Pattern {
	out := make([]ast.Pattern, 0, len(pats)-1)
	out = append(out, pats[:col]...)
	out = append(out, pats[col+1:]...)
	return out
}

// withoutTypes is without's counterpart for the parallel []types.Type slice
// each row carries alongside its patterns.
func withoutTypes(cols []types.Type, col int) []types.Type {
	out := make([]types.Type, 0, len(cols)-1)
	out = append(out, cols[:col]...)
	out = append(out, cols[col+1:]...)
	return out
}

func compileBool(mc *types.ModuleCache, rows []row, occ []int, col int, reached map[int]bool) (Tree, []string) {
	byVal := map[bool][]row{}
	var defaults []row
	for _, r := range rows {
		switch p := r.pats[col].(type) {
		case *ast.LitPattern:
			v, _ := p.Value.(bool)
			byVal[v] = append(byVal[v], dropColumn(r, col))
		default:
			defaults = append(defaults, dropColumn(r, col))
		}
	}
	var cases []Case
	var missing []string
	for _, v := range []bool{false, true} {
		sub := byVal[v]
		name := fmt.Sprintf("%v", v)
		if len(sub) == 0 && len(defaults) == 0 {
			missing = append(missing, name)
			cases = append(cases, Case{Name: name, Sub: &Fail{}})
			continue
		}
		subTree, subMissing := compileMatrix(mc, append(append([]row{}, sub...), defaults...), append(occ, len(cases)), reached)
		missing = append(missing, subMissing...)
		cases = append(cases, Case{Name: name, Sub: subTree})
	}
	return &Switch{Occurrence: append([]int{}, occ...), Cases: cases}, missing
}

// compileLiteral handles infinite domains (int, float, string, char): the
// column can never be proven exhaustive by enumeration, so coverage requires
// a wildcard/var row as the eventual default (spec.md §4.6 "open domains").
func compileLiteral(mc *types.ModuleCache, rows []row, occ []int, col int, reached map[int]bool) (Tree, []string) {
	byVal := map[interface{}][]row{}
	var order []interface{}
	var defaults []row
	for _, r := range rows {
		switch p := r.pats[col].(type) {
		case *ast.LitPattern:
			if _, ok := byVal[p.Value]; !ok {
				order = append(order, p.Value)
			}
			byVal[p.Value] = append(byVal[p.Value], dropColumn(r, col))
		default:
			defaults = append(defaults, dropColumn(r, col))
		}
	}

	var cases []Case
	var missing []string
	var defaultTree Tree
	if len(defaults) > 0 {
		defaultTree, missing = compileMatrix(mc, defaults, append(occ, len(order)), reached)
	} else {
		missing = append(missing, "_")
		defaultTree = &Fail{}
	}
	for _, v := range order {
		sub := byVal[v]
		subTree, subMissing := compileMatrix(mc, append(append([]row{}, sub...), defaults...), append(occ, len(cases)), reached)
		missing = append(missing, subMissing...)
		cases = append(cases, Case{Name: fmt.Sprintf("%v", v), Sub: subTree})
	}
	return &Switch{Occurrence: append([]int{}, occ...), Cases: cases, Default: defaultTree}, missing
}

func wildcardArgs(n int) string {
	if n == 0 {
		return ""
	}
	args := make([]string, n)
	for i := range args {
		args[i] = "_"
	}
	return "(" + strings.Join(args, ", ") + ")"
}

