package hir

import (
	"sort"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/types"
)

// mrow is one row of the pattern matrix being compiled: pats and cols stay
// parallel as specialisation peels off constructor columns, exactly like
// dtree's own compileMatrix, except cols carries the already-lowered
// expression to project fields out of instead of an abstract occurrence.
type mrow struct {
	pats  []ast.Pattern
	cols  []Expr
	types []types.Type
	arm   int
}

// compileMatch builds the executable decision tree for a match expression
// over scrutinee, binding each arm's pattern variables via Proj chains
// rooted at scrutinee and lowering each arm's guard/body with those
// bindings added to scope.
func (l *Lowerer) compileMatch(n *ast.Match, scrutinee Expr, scrutT types.Type, scope map[ast.DefId]string, fr *frame) MTree {
	rows := make([]mrow, len(n.Arms))
	for i, arm := range n.Arms {
		rows[i] = mrow{pats: []ast.Pattern{arm.Pattern}, cols: []Expr{scrutinee}, types: []types.Type{scrutT}, arm: i}
	}
	return l.compileRows(rows, n.Arms, scope, fr)
}

func (l *Lowerer) compileRows(rows []mrow, arms []ast.MatchArm, scope map[ast.DefId]string, fr *frame) MTree {
	if len(rows) == 0 {
		return &MFail{}
	}
	if allWildcard(rows[0].pats) {
		return l.leafFor(rows[0], arms[rows[0].arm], scope, fr, rows[1:], arms)
	}

	col := firstConstructorColumn(rows[0].pats)
	colType := l.concrete(rows[0].types[col])

	switch colType.(type) {
	case *types.Bool:
		return l.compileLit(rows, arms, col, scope, fr)
	default:
		if isSumType(l.MC, colType) {
			return l.compileSum(rows, arms, col, colType, scope, fr)
		}
		return l.compileLit(rows, arms, col, scope, fr)
	}
}

func allWildcard(pats []ast.Pattern) bool {
	for _, p := range pats {
		switch p.(type) {
		case *ast.WildcardPattern, *ast.VarPattern:
		default:
			return false
		}
	}
	return true
}

func firstConstructorColumn(pats []ast.Pattern) int {
	for i, p := range pats {
		switch p.(type) {
		case *ast.WildcardPattern, *ast.VarPattern:
		default:
			return i
		}
	}
	return 0
}

func isSumType(mc *types.ModuleCache, t types.Type) bool {
	ud, ok := t.(*types.UserDefined)
	if !ok {
		return false
	}
	return len(mc.TypeInfoByID(ud.Id).Variants) > 0
}

// leafFor finishes a fully-matched row: every remaining column is a
// Wildcard or VarPattern, so it only contributes bindings, never more
// dispatch. rest/restArms are the rows below this one, used as the Else
// continuation when this arm carries a guard.
func (l *Lowerer) leafFor(r mrow, arm ast.MatchArm, scope map[ast.DefId]string, fr *frame, rest []mrow, restArms []ast.MatchArm) MTree {
	local := copyScope(scope)
	var binds []bind
	for i, p := range r.pats {
		if vp, ok := p.(*ast.VarPattern); ok {
			name := l.freshLocal(vp.Name)
			local[vp.Def] = name
			binds = append(binds, bind{name: name, value: r.cols[i]})
		}
	}
	if arm.Guard == nil {
		return &MLeaf{Body: wrapBinds(binds, l.lowerExpr(arm.Body, local, fr))}
	}
	cond := wrapBinds(binds, l.lowerExpr(arm.Guard, local, fr))
	then := wrapBinds(binds, l.lowerExpr(arm.Body, local, fr))
	return &MGuard{Cond: cond, Then: then, Else: l.compileRows(rest, restArms, scope, fr)}
}

// bind is one pattern variable this arm extracted, ready to be wrapped in
// a Let around whichever expression needs it in scope.
type bind struct {
	name  string
	value Expr
}

func wrapBinds(binds []bind, body Expr) Expr {
	for i := len(binds) - 1; i >= 0; i-- {
		b := binds[i]
		body = &Let{Name: b.name, Value: b.value, Body: body, Type: exprType(body)}
	}
	return body
}

// compileSum specialises on a sum type's tag, following the same matrix
// discipline as dtree's compileSum (spec.md §8, Maranget's algorithm): a
// constructor row only specialises into its own tag's bucket; a wildcard
// row is expanded with blank sub-patterns into every bucket already in
// play, and also keeps a column-dropped copy for the default branch
// (variants the matrix never names explicitly).
func (l *Lowerer) compileSum(rows []mrow, arms []ast.MatchArm, col int, colType types.Type, scope map[ast.DefId]string, fr *frame) MTree {
	ud := colType.(*types.UserDefined)
	ti := l.MC.TypeInfoByID(ud.Id)
	fieldSub := variantFieldSub(ti, ud)

	var order []uint8
	seen := map[uint8]bool{}
	for _, r := range rows {
		if pp, ok := r.pats[col].(*ast.ConstructorPattern); ok {
			tag := l.tagFor(ti, pp.Def)
			if !seen[tag] {
				seen[tag] = true
				order = append(order, tag)
			}
		}
	}

	fieldTypesFor := func(tag uint8) []types.Type {
		variant := ti.Variants[int(tag)]
		fts := make([]types.Type, len(variant.Fields))
		for i, ft := range variant.Fields {
			fts[i] = types.SubstituteVars(l.MC, fieldSub, ft)
		}
		return fts
	}

	var mcases []MCase
	for _, tag := range order {
		fieldTypes := fieldTypesFor(tag)
		var bucket []mrow
		for _, r := range rows {
			switch pp := r.pats[col].(type) {
			case *ast.ConstructorPattern:
				if l.tagFor(ti, pp.Def) != tag {
					continue
				}
				payload := r.cols[col]
				newCols := make([]Expr, len(fieldTypes))
				for i, ft := range fieldTypes {
					newCols[i] = &Proj{Target: payload, Index: i, Type: l.concrete(ft)}
				}
				bucket = append(bucket, mrow{
					pats:  append(append([]ast.Pattern{}, pp.Args...), without(r.pats, col)...),
					cols:  append(newCols, withoutExpr(r.cols, col)...),
					types: append(fieldTypes, withoutTypes(r.types, col)...),
					arm:   r.arm,
				})
			case *ast.WildcardPattern, *ast.VarPattern:
				blanks := make([]ast.Pattern, len(fieldTypes))
				for i := range blanks {
					blanks[i] = &ast.WildcardPattern{}
				}
				bucket = append(bucket, mrow{
					pats:  append(blanks, without(r.pats, col)...),
					cols:  append(make([]Expr, len(blanks)), withoutExpr(r.cols, col)...),
					types: append(fieldTypes, withoutTypes(r.types, col)...),
					arm:   r.arm,
				})
			}
		}
		mcases = append(mcases, MCase{Tag: tag, Sub: l.compileRows(bucket, armsFor(bucket, arms), scope, fr)})
	}

	var defaultRows []mrow
	for _, r := range rows {
		if _, ok := r.pats[col].(*ast.ConstructorPattern); ok {
			continue
		}
		defaultRows = append(defaultRows, mrow{
			pats: without(r.pats, col), cols: withoutExpr(r.cols, col),
			types: withoutTypes(r.types, col), arm: r.arm,
		})
	}
	var def MTree = &MFail{}
	if len(defaultRows) > 0 {
		def = l.compileRows(defaultRows, armsFor(defaultRows, arms), scope, fr)
	}
	return &MSwitch{Scrutinee: rows[0].cols[col], Cases: mcases, Default: def}
}

func armsFor(rows []mrow, arms []ast.MatchArm) []ast.MatchArm {
	out := make([]ast.MatchArm, len(rows))
	for i, r := range rows {
		out[i] = arms[r.arm]
	}
	return out
}

// tagFor gives a variant's runtime tag as its index in TypeInfo.Variants
// (spec.md §4.7 "Sum types"), the same rule lower.go's variantTag applies. It also caches the
// tag onto the constructor's own DefinitionInfo the first time it is seen,
// so later lookups that only have the DefinitionInfoId (not the TypeInfo)
// can read it back directly.
func (l *Lowerer) tagFor(ti *types.TypeInfo, def ast.DefId) uint8 {
	cid, ok := l.Checker.ResolvedDef(def)
	if !ok {
		return 0
	}
	for i, v := range ti.Variants {
		if v.Def == cid {
			tag := uint8(i)
			info := l.MC.Definition(cid)
			if info.ConstructorTag == nil {
				info.ConstructorTag = &tag
			}
			return tag
		}
	}
	return 0
}

func variantFieldSub(ti *types.TypeInfo, ud *types.UserDefined) map[cache.TypeVariableId]types.Type {
	sub := make(map[cache.TypeVariableId]types.Type, len(ti.Params))
	for i, p := range ti.Params {
		if i < len(ud.Args) {
			sub[p] = ud.Args[i]
		}
	}
	return sub
}

func (l *Lowerer) compileLit(rows []mrow, arms []ast.MatchArm, col int, scope map[ast.DefId]string, fr *frame) MTree {
	var order []interface{}
	cases := map[interface{}][]mrow{}
	var defaultRows []mrow
	seen := map[interface{}]bool{}
	for _, r := range rows {
		p := r.pats[col]
		switch pp := p.(type) {
		case *ast.LitPattern:
			if !seen[pp.Value] {
				seen[pp.Value] = true
				order = append(order, pp.Value)
			}
			cases[pp.Value] = append(cases[pp.Value], mrow{
				pats: without(r.pats, col), cols: withoutExpr(r.cols, col),
				types: withoutTypes(r.types, col), arm: r.arm,
			})
		default:
			for _, v := range order {
				cases[v] = append(cases[v], mrow{
					pats: without(r.pats, col), cols: withoutExpr(r.cols, col),
					types: withoutTypes(r.types, col), arm: r.arm,
				})
			}
			defaultRows = append(defaultRows, mrow{
				pats: without(r.pats, col), cols: withoutExpr(r.cols, col),
				types: withoutTypes(r.types, col), arm: r.arm,
			})
		}
	}
	sort.Slice(order, func(i, j int) bool { return fmtVal(order[i]) < fmtVal(order[j]) })
	var mcases []MCase
	var lits []interface{}
	for _, v := range order {
		rs := cases[v]
		sub := l.compileRows(rs, armsFor(rs, arms), scope, fr)
		mcases = append(mcases, MCase{Sub: sub})
		lits = append(lits, v)
	}
	var def MTree = &MFail{}
	if len(defaultRows) > 0 {
		def = l.compileRows(defaultRows, armsFor(defaultRows, arms), scope, fr)
	}
	return &MSwitch{Scrutinee: rows[0].cols[col], Cases: mcases, Lits: lits, Default: def}
}

func fmtVal(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}

func without(pats []ast.Pattern, col int) []ast.Pattern {
	out := make([]ast.Pattern, 0, len(pats)-1)
	for i, p := range pats {
		if i != col {
			out = append(out, p)
		}
	}
	return out
}

func withoutExpr(cols []Expr, col int) []Expr {
	out := make([]Expr, 0, len(cols)-1)
	for i, c := range cols {
		if i != col {
			out = append(out, c)
		}
	}
	return out
}

func withoutTypes(types_ []types.Type, col int) []types.Type {
	out := make([]types.Type, 0, len(types_)-1)
	for i, t := range types_ {
		if i != col {
			out = append(out, t)
		}
	}
	return out
}
