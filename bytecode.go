package selene

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/crypto/sha3"
)

var bytecodeMagic = [4]byte{'S', 'L', 'B', 'C'}

// BytecodeFormatVersion is the binary format version for selene
// bytecode artifacts.
const BytecodeFormatVersion uint16 = 1

const (
	bcConstNil uint8 = iota
	bcConstBool
	bcConstNumber
	bcConstString
)

func bytecodeBuilderID() string {
	return fmt.Sprintf("pkg=%s-%s;ops=%d", PackageName, PackageVersion, opCodeMax+1)
}

// IsBytecode reports whether data starts with the selene bytecode
// magic bytes.
func IsBytecode(data []byte) bool {
	if len(data) < len(bytecodeMagic) {
		return false
	}
	return bytes.Equal(data[:len(bytecodeMagic)], bytecodeMagic[:])
}

// EncodeProto serializes a prototype tree into a deterministic blob:
// magic, format version, builder ID, sha3-256 payload digest, payload.
func EncodeProto(proto *Proto) ([]byte, error) {
	if proto == nil {
		return nil, fmt.Errorf("nil function prototype")
	}
	w := &bcWriter{}
	w.writeProto(proto)
	if w.err != nil {
		return nil, w.err
	}
	payload := w.buf.Bytes()
	sum := sha3.Sum256(payload)

	hdr := &bcWriter{}
	hdr.buf.Write(bytecodeMagic[:])
	hdr.writeU16(BytecodeFormatVersion)
	hdr.writeString(bytecodeBuilderID())
	hdr.buf.Write(sum[:])
	hdr.buf.Write(payload)
	if hdr.err != nil {
		return nil, hdr.err
	}
	return hdr.buf.Bytes(), nil
}

// DecodeProto verifies the container (magic, version, builder ID,
// digest) and rebuilds the prototype tree.
func DecodeProto(data []byte) (*Proto, error) {
	if !IsBytecode(data) {
		return nil, fmt.Errorf("invalid bytecode magic")
	}
	r := &bcReader{r: bytes.NewReader(data[len(bytecodeMagic):])}
	if version := r.readU16(); r.err == nil && version != BytecodeFormatVersion {
		return nil, fmt.Errorf("unsupported bytecode format version %d", version)
	}
	if builder := r.readString(); r.err == nil && builder != bytecodeBuilderID() {
		return nil, fmt.Errorf("bytecode built by incompatible compiler %q", builder)
	}
	var sum [32]byte
	r.readFull(sum[:])
	payload := make([]byte, r.remaining())
	r.readFull(payload)
	if r.err != nil {
		return nil, r.err
	}
	if sha3.Sum256(payload) != sum {
		return nil, fmt.Errorf("bytecode digest mismatch")
	}

	pr := &bcReader{r: bytes.NewReader(payload)}
	proto := pr.readProto()
	if pr.err != nil {
		return nil, pr.err
	}
	return proto, nil
}

type bcWriter struct {
	buf bytes.Buffer
	err error
}

func (w *bcWriter) writeU16(v uint16) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.LittleEndian, v)
}

func (w *bcWriter) writeI32(v int) {
	if w.err != nil {
		return
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		w.err = fmt.Errorf("value %d out of int32 range", v)
		return
	}
	w.err = binary.Write(&w.buf, binary.LittleEndian, int32(v))
}

func (w *bcWriter) writeBool(v bool) {
	b := uint8(0)
	if v {
		b = 1
	}
	w.writeByte(b)
}

func (w *bcWriter) writeByte(b uint8) {
	if w.err != nil {
		return
	}
	w.err = w.buf.WriteByte(b)
}

func (w *bcWriter) writeF64(v float64) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(&w.buf, binary.LittleEndian, math.Float64bits(v))
}

func (w *bcWriter) writeString(s string) {
	w.writeI32(len(s))
	if w.err != nil {
		return
	}
	_, w.err = w.buf.WriteString(s)
}

func (w *bcWriter) writeProto(p *Proto) {
	w.writeString(p.Source)
	w.writeI32(p.LineDefined)
	w.writeI32(p.NumParameters)
	w.writeBool(p.IsVarArg)
	w.writeI32(p.NumUsedRegs)

	w.writeI32(len(p.Code))
	for i, inst := range p.Code {
		w.writeByte(uint8(inst.Op))
		w.writeI32(inst.A)
		w.writeI32(inst.B)
		w.writeI32(inst.Bx)
		w.writeI32(inst.Sbx)
		w.writeI32(p.Lines[i])
	}

	w.writeI32(len(p.Constants))
	for _, c := range p.Constants {
		switch v := c.(type) {
		case Nil:
			w.writeByte(bcConstNil)
		case Bool:
			w.writeByte(bcConstBool)
			w.writeBool(bool(v))
		case Number:
			w.writeByte(bcConstNumber)
			w.writeF64(float64(v))
		case String:
			w.writeByte(bcConstString)
			w.writeString(string(v))
		default:
			if w.err == nil {
				w.err = fmt.Errorf("constant type %s not encodable", c.Type())
			}
		}
	}

	w.writeI32(len(p.Upvalues))
	for _, uv := range p.Upvalues {
		w.writeString(uv.Name)
		w.writeBool(uv.ParentLocal)
		w.writeI32(uv.Index)
	}

	w.writeI32(len(p.LocalVars))
	for _, lv := range p.LocalVars {
		w.writeString(lv.Name)
		w.writeI32(lv.Reg)
		w.writeI32(lv.StartPC)
		w.writeI32(lv.EndPC)
	}

	w.writeI32(len(p.Protos))
	for _, child := range p.Protos {
		w.writeProto(child)
	}
}

type bcReader struct {
	r   *bytes.Reader
	err error
}

func (r *bcReader) remaining() int { return r.r.Len() }

func (r *bcReader) readFull(dst []byte) {
	if r.err != nil {
		return
	}
	if r.r.Len() < len(dst) {
		r.err = fmt.Errorf("truncated bytecode")
		return
	}
	_, r.err = r.r.Read(dst)
}

func (r *bcReader) readU16() uint16 {
	if r.err != nil {
		return 0
	}
	var v uint16
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return v
}

func (r *bcReader) readI32() int {
	if r.err != nil {
		return 0
	}
	var v int32
	r.err = binary.Read(r.r, binary.LittleEndian, &v)
	return int(v)
}

func (r *bcReader) readByte() uint8 {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	r.err = err
	return b
}

func (r *bcReader) readBool() bool { return r.readByte() != 0 }

func (r *bcReader) readF64() float64 {
	if r.err != nil {
		return 0
	}
	var bits uint64
	r.err = binary.Read(r.r, binary.LittleEndian, &bits)
	return math.Float64frombits(bits)
}

func (r *bcReader) readString() string {
	n := r.readI32()
	if r.err != nil {
		return ""
	}
	if n < 0 || n > r.r.Len() {
		r.err = fmt.Errorf("invalid string length %d", n)
		return ""
	}
	buf := make([]byte, n)
	r.readFull(buf)
	return string(buf)
}

func (r *bcReader) readCount(what string) int {
	n := r.readI32()
	if r.err == nil && (n < 0 || n > r.r.Len()) {
		r.err = fmt.Errorf("invalid %s count %d", what, n)
		return 0
	}
	return n
}

func (r *bcReader) readProto() *Proto {
	p := &Proto{}
	p.Source = r.readString()
	p.LineDefined = r.readI32()
	p.NumParameters = r.readI32()
	p.IsVarArg = r.readBool()
	p.NumUsedRegs = r.readI32()

	ninst := r.readCount("instruction")
	for i := 0; i < ninst && r.err == nil; i++ {
		op := OpCode(r.readByte())
		if int(op) > opCodeMax {
			r.err = fmt.Errorf("invalid opcode %d", int(op))
			return p
		}
		inst := Instruction{
			Op:  op,
			A:   r.readI32(),
			B:   r.readI32(),
			Bx:  r.readI32(),
			Sbx: r.readI32(),
		}
		line := r.readI32()
		if r.err == nil {
			p.AddInstruction(inst, line)
		}
	}

	nconst := r.readCount("constant")
	for i := 0; i < nconst && r.err == nil; i++ {
		switch tag := r.readByte(); tag {
		case bcConstNil:
			p.Constants = append(p.Constants, Nil{})
		case bcConstBool:
			p.Constants = append(p.Constants, Bool(r.readBool()))
		case bcConstNumber:
			p.Constants = append(p.Constants, Number(r.readF64()))
		case bcConstString:
			p.Constants = append(p.Constants, String(r.readString()))
		default:
			r.err = fmt.Errorf("invalid constant tag %d", tag)
		}
	}

	nup := r.readCount("upvalue")
	for i := 0; i < nup && r.err == nil; i++ {
		name := r.readString()
		parentLocal := r.readBool()
		index := r.readI32()
		if r.err == nil {
			p.AddUpvalue(name, parentLocal, index)
		}
	}

	nloc := r.readCount("local")
	for i := 0; i < nloc && r.err == nil; i++ {
		name := r.readString()
		reg := r.readI32()
		start := r.readI32()
		end := r.readI32()
		if r.err == nil {
			p.AddLocalVar(name, reg, start, end)
		}
	}

	nchild := r.readCount("prototype")
	for i := 0; i < nchild && r.err == nil; i++ {
		p.AddChild(r.readProto())
	}
	return p
}
