package main

import (
	"github.com/antec-lang/antec/internal/ast"
)

// demoProgram is one named, self-contained program the typecheck
// subcommand can run, built the same way the library's own tests build
// synthetic trees (there is no parser here to read real source from,
// spec.md §1 "Lexer and parser... out of scope").
type demoProgram struct {
	name string
	defs []*ast.Definition
	main string
}

var demoPrograms = []demoProgram{
	{
		name: "literal",
		defs: []*ast.Definition{
			{Name: "main", Def: 1, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(42)}},
		},
		main: "main",
	},
	{
		name: "closure",
		defs: []*ast.Definition{
			{
				Name: "makeConst", Def: 1,
				Params: []ast.Pattern{&ast.VarPattern{Name: "n", Def: 2}},
				Body: &ast.Lambda{
					Params: []ast.Pattern{&ast.WildcardPattern{}},
					Body:   &ast.Var{Name: "n", Def: 2},
				},
			},
			{
				Name: "main", Def: 3,
				Body: &ast.App{
					Func: &ast.App{
						Func: &ast.Var{Name: "makeConst", Def: 1},
						Args: []ast.Expr{&ast.Lit{Kind: ast.LitInt, Value: int64(7)}},
					},
					Args: []ast.Expr{&ast.Lit{Kind: ast.LitInt, Value: int64(0)}},
				},
			},
		},
		main: "main",
	},
}

func findDemo(name string) (demoProgram, bool) {
	for _, d := range demoPrograms {
		if d.name == name {
			return d, true
		}
	}
	return demoProgram{}, false
}
