package main

import (
	"os"
	"path/filepath"
	"testing"

	selene "github.com/selene-lang/selene"
	"github.com/selene-lang/selene/ast"
)

func buildArtifact(t *testing.T) string {
	t.Helper()
	stmts := []ast.Stmt{
		&ast.LocalAssignStmt{
			Names: []ast.Name{{Value: "f"}},
			Exprs: []ast.Expr{&ast.FunctionExpr{Stmts: []ast.Stmt{
				&ast.ReturnStmt{Exprs: []ast.Expr{&ast.NumberExpr{Value: 1}}},
			}}},
		},
	}
	cl, err := selene.Compile(stmts, "artifact.sel", selene.NewState())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	data, err := selene.EncodeProto(cl.Proto)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "artifact.slbc")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindProto(t *testing.T) {
	state := selene.NewState()
	root := state.NewProto()
	a := state.NewProto()
	b := state.NewProto()
	root.AddChild(a)
	a.AddChild(b)

	if p, err := findProto(root, ""); err != nil || p != root {
		t.Fatalf("empty path: got=%v err=%v", p, err)
	}
	if p, err := findProto(root, "0"); err != nil || p != a {
		t.Fatalf("path 0: got=%v err=%v", p, err)
	}
	if p, err := findProto(root, "0.0"); err != nil || p != b {
		t.Fatalf("path 0.0: got=%v err=%v", p, err)
	}
	for _, bad := range []string{"1", "-1", "x", "0.5", "0.0.0"} {
		if _, err := findProto(root, bad); err == nil {
			t.Fatalf("path %q: expected error", bad)
		}
	}
}

func TestCountProtos(t *testing.T) {
	state := selene.NewState()
	root := state.NewProto()
	a := state.NewProto()
	root.AddChild(a)
	a.AddChild(state.NewProto())
	root.AddChild(state.NewProto())
	if got := countProtos(root); got != 4 {
		t.Fatalf("got=%d want=4", got)
	}
}

func TestCmdVerify(t *testing.T) {
	path := buildArtifact(t)
	if got := cmdVerify([]string{path}); got != 0 {
		t.Fatalf("valid artifact: got=%d want=0", got)
	}
	if got := cmdVerify([]string{filepath.Join(t.TempDir(), "missing.slbc")}); got != 1 {
		t.Fatalf("missing file: got=%d want=1", got)
	}
	if got := cmdVerify(nil); got != 1 {
		t.Fatalf("no argument: got=%d want=1", got)
	}

	corrupt := filepath.Join(t.TempDir(), "corrupt.slbc")
	if err := os.WriteFile(corrupt, []byte("not bytecode"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := cmdVerify([]string{corrupt}); got != 1 {
		t.Fatalf("corrupt file: got=%d want=1", got)
	}
}

func TestCmdInspect(t *testing.T) {
	path := buildArtifact(t)
	if got := cmdInspect([]string{"--no-color", path}); got != 0 {
		t.Fatalf("inspect: got=%d want=0", got)
	}
	if got := cmdInspect([]string{"--no-color"}); got != 1 {
		t.Fatalf("no argument: got=%d want=1", got)
	}
}

func TestDispatchSubcommand(t *testing.T) {
	if handled, _ := dispatchSubcommand(nil); handled {
		t.Fatal("empty argument list should not be handled")
	}
	if handled, _ := dispatchSubcommand([]string{"bogus"}); handled {
		t.Fatal("unknown subcommand should not be handled")
	}
	if handled, code := dispatchSubcommand([]string{"--version"}); !handled || code != 0 {
		t.Fatalf("--version: handled=%t code=%d", handled, code)
	}
	if got := mainAux([]string{"bogus"}); got != 1 {
		t.Fatalf("unknown subcommand exit: got=%d want=1", got)
	}
	if got := mainAux(nil); got != 1 {
		t.Fatalf("bare invocation exit: got=%d want=1", got)
	}
}
