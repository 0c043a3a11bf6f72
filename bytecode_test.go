package selene

import (
	"strings"
	"testing"

	"github.com/selene-lang/selene/ast"
)

func encodeFixture(t *testing.T) (*Proto, []byte) {
	t.Helper()
	proto := mustCompile(t, []ast.Stmt{
		localStmt(capturedNames("x"), num(1)),
		localStmt(names("s", "b"), str("hi"), boolTrue()),
		localStmt(names("f"), fnExpr(
			&ast.ParList{Names: names("p")},
			retStmt(
				ident("x", ast.ScopeUpvalue),
				ident("p", ast.ScopeLocal),
				callExpr(ident("g", ast.ScopeGlobal)),
			),
		)),
		retStmt(callExpr(ident("f", ast.ScopeLocal), vararg())),
	})
	data, err := EncodeProto(proto)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return proto, data
}

func TestBytecodeRoundTrip(t *testing.T) {
	proto, data := encodeFixture(t)
	if !IsBytecode(data) {
		t.Fatal("encoded artifact not recognized as bytecode")
	}

	decoded, err := DecodeProto(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, want := decoded.Dump(), proto.Dump(); got != want {
		t.Fatalf("round trip changed the tree:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if len(decoded.Protos) != 1 || decoded.Protos[0].Parent() != decoded {
		t.Fatal("decoded child not linked to its parent")
	}
}

func TestBytecodeEncodingIsDeterministic(t *testing.T) {
	proto, data := encodeFixture(t)
	again, err := EncodeProto(proto)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != string(again) {
		t.Fatal("two encodings of the same tree differ")
	}
}

func TestBytecodeDigestMismatch(t *testing.T) {
	_, data := encodeFixture(t)
	data[len(data)-1] ^= 0xFF
	_, err := DecodeProto(data)
	if err == nil || !strings.Contains(err.Error(), "digest") {
		t.Fatalf("tampered payload: got err=%v", err)
	}
}

func TestBytecodeBadMagic(t *testing.T) {
	if IsBytecode([]byte("nope")) {
		t.Fatal("foreign data recognized as bytecode")
	}
	if _, err := DecodeProto([]byte("nope")); err == nil {
		t.Fatal("expected magic error")
	}
}

func TestBytecodeWrongVersion(t *testing.T) {
	_, data := encodeFixture(t)
	data[4], data[5] = 0xFF, 0xFF // format version field
	_, err := DecodeProto(data)
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Fatalf("wrong version: got err=%v", err)
	}
}

func TestBytecodeTruncatedHeader(t *testing.T) {
	_, data := encodeFixture(t)
	if _, err := DecodeProto(data[:10]); err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestEncodeNilProto(t *testing.T) {
	if _, err := EncodeProto(nil); err == nil {
		t.Fatal("expected error for nil prototype")
	}
}
