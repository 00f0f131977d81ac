// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rast

import (
	"fmt"
	"strings"
)

type printer struct {
	b      strings.Builder
	indent int
}

// String returns the canonical rendering of a node.
// Blocks holding only a tail expression are rendered on a single line.
func String(n Node) string {
	if n == nil {
		return ""
	}
	p := &printer{}
	p.node(n)
	return p.b.String()
}

func (p *printer) ws(s string) {
	p.b.WriteString(s)
}

func (p *printer) newline() {
	p.b.WriteString("\n")
	p.b.WriteString(strings.Repeat("    ", p.indent))
}

func (p *printer) node(n Node) {
	switch nT := n.(type) {
	case Type:
		p.typ(nT)
	case Expr:
		p.expr(nT)
	case Stmt:
		p.stmt(nT)
	case Item:
		p.item(nT)
	case *File:
		p.file(nT)
	case *Param:
		p.param(nT)
	case *MatchArm:
		p.arm(nT)
	default:
		p.ws(fmt.Sprintf("/* %T */", nT))
	}
}

func (p *printer) list(n int, f func(int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			p.ws(", ")
		}
		f(i)
	}
}

func (p *printer) types(ts []Type) {
	p.list(len(ts), func(i int) { p.typ(ts[i]) })
}

func (p *printer) typ(t Type) {
	switch tT := t.(type) {
	case nil:
		p.ws("()")
	case *TypePath:
		p.ws(tT.Name)
		if len(tT.Args) > 0 {
			p.ws("<")
			p.types(tT.Args)
			p.ws(">")
		}
	case *TypeRef:
		p.ws("&")
		if tT.Mut {
			p.ws("mut ")
		}
		p.typ(tT.Elem)
	case *TypeTuple:
		p.ws("(")
		p.types(tT.Elems)
		if len(tT.Elems) == 1 {
			p.ws(",")
		}
		p.ws(")")
	case *TypeDyn:
		p.ws("dyn ")
		p.typ(tT.Trait)
	case *TypeImpl:
		p.ws("impl ")
		p.typ(tT.Trait)
	case *TypeFn:
		p.ws(tT.Trait)
		p.ws("(")
		p.types(tT.Params)
		p.ws(")")
		if tT.Ret != nil {
			p.ws(" -> ")
			p.typ(tT.Ret)
		}
	case *TypeAssoc:
		p.ws(tT.Name)
		p.ws(" = ")
		p.typ(tT.Value)
	case *TypeInfer:
		p.ws("_")
	default:
		p.ws(fmt.Sprintf("/* %T */", tT))
	}
}

// Quote quotes a string as a Rust string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func binaryPrec(op string) int {
	switch op {
	case "||":
		return 1
	case "&&":
		return 2
	case "==", "!=", "<", ">", "<=", ">=":
		return 3
	case "|":
		return 4
	case "^":
		return 5
	case "&":
		return 6
	case "<<", ">>":
		return 7
	case "+", "-":
		return 8
	case "*", "/", "%":
		return 9
	}
	return 0
}

// needsParenAsOperand reports whether x must be parenthesised when used as the
// receiver of a postfix operation (method call, field, index, ?, .await).
func needsParenAsOperand(x Expr) bool {
	switch x.(type) {
	case *Binary, *Unary, *Cast, *Ref, *Deref, *Closure, *Range, *If, *Match, *IfLet:
		return true
	}
	return false
}

func (p *printer) operand(x Expr) {
	if needsParenAsOperand(x) {
		p.ws("(")
		p.expr(x)
		p.ws(")")
		return
	}
	p.expr(x)
}

func (p *printer) binaryOperand(x Expr, parent int, right bool) {
	switch xT := x.(type) {
	case *Binary:
		prec := binaryPrec(xT.Op)
		if prec < parent || (right && prec == parent) || (prec == 3 && parent == 3) {
			p.ws("(")
			p.expr(x)
			p.ws(")")
			return
		}
	case *Closure, *Range, *If, *Match, *IfLet:
		p.ws("(")
		p.expr(x)
		p.ws(")")
		return
	}
	p.expr(x)
}

func (p *printer) exprs(xs []Expr) {
	p.list(len(xs), func(i int) { p.expr(xs[i]) })
}

func (p *printer) expr(x Expr) {
	switch xT := x.(type) {
	case nil:
		p.ws("()")
	case *Ident:
		p.ws(xT.Name)
	case *Path:
		p.ws(strings.Join(xT.Segments, "::"))
	case *Lit:
		p.lit(xT)
	case *Binary:
		prec := binaryPrec(xT.Op)
		p.binaryOperand(xT.X, prec, false)
		p.ws(" " + xT.Op + " ")
		p.binaryOperand(xT.Y, prec, true)
	case *Unary:
		p.ws(xT.Op)
		p.operand(xT.X)
	case *Ref:
		p.ws("&")
		if xT.Mut {
			p.ws("mut ")
		}
		p.operand(xT.X)
	case *Deref:
		p.ws("*")
		p.operand(xT.X)
	case *Call:
		p.operand(xT.Fun)
		p.ws("(")
		p.exprs(xT.Args)
		p.ws(")")
	case *MethodCall:
		p.operand(xT.Recv)
		p.ws("." + xT.Method)
		if len(xT.Turbofish) > 0 {
			p.ws("::<")
			p.types(xT.Turbofish)
			p.ws(">")
		}
		p.ws("(")
		p.exprs(xT.Args)
		p.ws(")")
	case *Field:
		p.operand(xT.X)
		p.ws("." + xT.Name)
	case *Index:
		p.operand(xT.X)
		p.ws("[")
		p.expr(xT.Index)
		p.ws("]")
	case *Macro:
		p.ws(xT.Name + "!")
		open, closing := "(", ")"
		if xT.Bracket {
			open, closing = "[", "]"
		}
		p.ws(open)
		p.exprs(xT.Args)
		if xT.Len != nil {
			p.ws("; ")
			p.expr(xT.Len)
		}
		p.ws(closing)
	case *Closure:
		if xT.Move {
			p.ws("move ")
		}
		p.ws("|")
		p.list(len(xT.Params), func(i int) { p.param(xT.Params[i]) })
		p.ws("| ")
		if xT.Ret != nil {
			p.ws("-> ")
			p.typ(xT.Ret)
			p.ws(" ")
		}
		p.expr(xT.Body)
	case *If:
		p.ifExpr(xT)
	case *IfLet:
		p.ws("if let ")
		p.expr(xT.Pattern)
		p.ws(" = ")
		p.expr(xT.Value)
		p.ws(" ")
		p.block(xT.Then)
		p.elseExpr(xT.Else)
	case *Block:
		p.block(xT)
	case *Match:
		p.ws("match ")
		p.expr(xT.X)
		p.ws(" {")
		p.indent++
		for _, arm := range xT.Arms {
			p.newline()
			p.arm(arm)
			p.ws(",")
		}
		p.indent--
		p.newline()
		p.ws("}")
	case *Cast:
		switch xT.X.(type) {
		case *Binary, *Unary, *Closure, *If, *IfLet, *Match, *Block, *Range:
			p.ws("(")
			p.expr(xT.X)
			p.ws(")")
		default:
			p.expr(xT.X)
		}
		p.ws(" as ")
		p.typ(xT.Type)
	case *Try:
		p.operand(xT.X)
		p.ws("?")
	case *Await:
		p.operand(xT.X)
		p.ws(".await")
	case *Tuple:
		p.ws("(")
		p.exprs(xT.Elts)
		if len(xT.Elts) == 1 {
			p.ws(",")
		}
		p.ws(")")
	case *Array:
		p.ws("[")
		p.exprs(xT.Elts)
		p.ws("]")
	case *Range:
		if xT.Lo != nil {
			p.binaryOperand(xT.Lo, 1, false)
		}
		if xT.Inclusive {
			p.ws("..=")
		} else {
			p.ws("..")
		}
		if xT.Hi != nil {
			p.binaryOperand(xT.Hi, 1, true)
		}
	case *Paren:
		p.ws("(")
		p.expr(xT.X)
		p.ws(")")
	case *StructLit:
		p.ws(xT.Name + " { ")
		p.list(len(xT.Fields), func(i int) {
			p.ws(xT.Fields[i].Name + ": ")
			p.expr(xT.Fields[i].Value)
		})
		p.ws(" }")
	case *Wild:
		p.ws("_")
	case *Binding:
		if xT.Mut {
			p.ws("mut ")
		}
		p.ws(xT.Name)
	default:
		p.ws(fmt.Sprintf("/* %T */", xT))
	}
}

func (p *printer) lit(l *Lit) {
	switch l.Kind {
	case StrLit:
		p.ws(Quote(l.Value))
	case CharLit:
		if l.Value == "'" {
			p.ws(`'\''`)
		} else {
			q := Quote(l.Value)
			p.ws("'" + q[1:len(q)-1] + "'")
		}
	default:
		p.ws(l.Value + l.Suffix)
	}
}

func (p *printer) param(prm *Param) {
	if prm.Mut {
		p.ws("mut ")
	}
	p.expr(prm.Pattern)
	if prm.Type != nil {
		p.ws(": ")
		p.typ(prm.Type)
	}
}

func (p *printer) arm(arm *MatchArm) {
	p.expr(arm.Pattern)
	if arm.Guard != nil {
		p.ws(" if ")
		p.expr(arm.Guard)
	}
	p.ws(" => ")
	p.expr(arm.Body)
}

func (p *printer) ifExpr(x *If) {
	p.ws("if ")
	p.expr(x.Cond)
	p.ws(" ")
	p.block(x.Then)
	p.elseExpr(x.Else)
}

func (p *printer) elseExpr(els Expr) {
	if els == nil {
		return
	}
	p.ws(" else ")
	switch eT := els.(type) {
	case *Block:
		p.block(eT)
	default:
		p.expr(eT)
	}
}

func (p *printer) block(b *Block) {
	if b == nil {
		p.ws("{}")
		return
	}
	if len(b.Stmts) == 0 {
		if b.Tail == nil {
			p.ws("{}")
			return
		}
		p.ws("{ ")
		p.expr(b.Tail)
		p.ws(" }")
		return
	}
	p.ws("{")
	p.indent++
	for _, s := range b.Stmts {
		p.newline()
		p.stmt(s)
	}
	if b.Tail != nil {
		p.newline()
		p.expr(b.Tail)
	}
	p.indent--
	p.newline()
	p.ws("}")
}

func isBlockLike(x Expr) bool {
	switch x.(type) {
	case *If, *IfLet, *Match, *Block:
		return true
	}
	return false
}

func (p *printer) stmt(s Stmt) {
	switch sT := s.(type) {
	case *Let:
		p.ws("let ")
		if sT.Mut {
			p.ws("mut ")
		}
		p.expr(sT.Pattern)
		if sT.Type != nil {
			p.ws(": ")
			p.typ(sT.Type)
		}
		if sT.Value != nil {
			p.ws(" = ")
			p.expr(sT.Value)
		}
		p.ws(";")
	case *ExprStmt:
		p.expr(sT.X)
		if !sT.NoSemi && !isBlockLike(sT.X) {
			p.ws(";")
		}
	case *Assign:
		p.expr(sT.Lhs)
		op := sT.Op
		if op == "" {
			op = "="
		}
		p.ws(" " + op + " ")
		p.expr(sT.Rhs)
		p.ws(";")
	case *While:
		p.ws("while ")
		p.expr(sT.Cond)
		p.ws(" ")
		p.block(sT.Body)
	case *WhileLet:
		p.ws("while let ")
		p.expr(sT.Pattern)
		p.ws(" = ")
		p.expr(sT.Value)
		p.ws(" ")
		p.block(sT.Body)
	case *Loop:
		p.ws("loop ")
		p.block(sT.Body)
	case *For:
		p.ws("for ")
		p.expr(sT.Pattern)
		p.ws(" in ")
		p.expr(sT.Iter)
		p.ws(" ")
		p.block(sT.Body)
	case *Return:
		p.ws("return")
		if sT.Value != nil {
			p.ws(" ")
			p.expr(sT.Value)
		}
		p.ws(";")
	case *Break:
		p.ws("break;")
	case *Continue:
		p.ws("continue;")
	case *Comment:
		if sT.Doc {
			p.ws("/// " + sT.Text)
		} else {
			p.ws("// " + sT.Text)
		}
	case *ItemStmt:
		p.item(sT.Item)
	default:
		p.ws(fmt.Sprintf("/* %T */", sT))
	}
}

func (p *printer) docs(lines []string) {
	for _, line := range lines {
		if line == "" {
			p.ws("///")
		} else {
			p.ws("/// " + line)
		}
		p.newline()
	}
}

func (p *printer) item(it Item) {
	switch iT := it.(type) {
	case *Fn:
		p.docs(iT.Doc)
		if iT.Pub {
			p.ws("pub ")
		}
		if iT.Async {
			p.ws("async ")
		}
		p.ws("fn " + iT.Name)
		if len(iT.Generics) > 0 {
			p.ws("<" + strings.Join(iT.Generics, ", ") + ">")
		}
		p.ws("(")
		n := 0
		if iT.Self != "" {
			p.ws(iT.Self)
			n++
		}
		for _, prm := range iT.Params {
			if n > 0 {
				p.ws(", ")
			}
			p.param(prm)
			n++
		}
		p.ws(")")
		if iT.Ret != nil {
			if tt, ok := iT.Ret.(*TypeTuple); !ok || len(tt.Elems) > 0 {
				p.ws(" -> ")
				p.typ(iT.Ret)
			}
		}
		p.ws(" ")
		if iT.Body == nil || (len(iT.Body.Stmts) == 0 && iT.Body.Tail == nil) {
			p.ws("{}")
			return
		}
		if len(iT.Body.Stmts) == 0 {
			// Function bodies always use the multi-line form.
			p.ws("{")
			p.indent++
			p.newline()
			p.expr(iT.Body.Tail)
			p.indent--
			p.newline()
			p.ws("}")
			return
		}
		p.block(iT.Body)
	case *Struct:
		p.docs(iT.Doc)
		if len(iT.Derive) > 0 {
			p.ws("#[derive(" + strings.Join(iT.Derive, ", ") + ")]")
			p.newline()
		}
		p.ws("pub struct " + iT.Name + " {")
		p.indent++
		for _, f := range iT.Fields {
			p.newline()
			p.ws(f.Name + ": ")
			p.typ(f.Type)
			p.ws(",")
		}
		p.indent--
		p.newline()
		p.ws("}")
	case *Impl:
		p.ws("impl ")
		if iT.Trait != "" {
			p.ws(iT.Trait + " for ")
		}
		p.ws(iT.Type + " {")
		p.indent++
		for _, a := range iT.Assocs {
			p.newline()
			p.ws("type ")
			p.typ(a)
			p.ws(";")
		}
		for _, sub := range iT.Items {
			p.newline()
			p.item(sub)
		}
		p.indent--
		p.newline()
		p.ws("}")
	case *Use:
		p.ws("use " + iT.Path + ";")
	case *Const:
		p.ws("pub const " + iT.Name + ": ")
		p.typ(iT.Type)
		p.ws(" = ")
		p.expr(iT.Value)
		p.ws(";")
	case *Raw:
		p.ws(strings.TrimRight(iT.Text, "\n"))
	default:
		p.ws(fmt.Sprintf("/* %T */", iT))
	}
}

func (p *printer) file(f *File) {
	for i, it := range f.Items {
		if i > 0 {
			p.ws("\n\n")
		}
		p.item(it)
	}
	p.ws("\n")
}
