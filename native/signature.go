package native

import "strings"

// Kind classifies a word-sized parameter or result of an entry point.
type Kind uint8

const (
	Void Kind = iota
	Handle
	Bool
	Int
	Uint32
	Size
	Address
	Pointer
)

func (k Kind) String() string {
	switch k {
	case Void:
		return "void"
	case Handle:
		return "handle"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Uint32:
		return "uint32"
	case Size:
		return "size"
	case Address:
		return "address"
	case Pointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// Signature declares one entry point: its symbol, ordered parameter kinds and result kind.
type Signature struct {
	Symbol string
	Params []Kind
	Result Kind
}

// Func builds a Signature.
func Func(symbol string, result Kind, params ...Kind) Signature {
	return Signature{Symbol: symbol, Params: params, Result: result}
}

func (s Signature) String() string {
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
	}
	return s.Result.String() + " " + s.Symbol + "(" + strings.Join(params, ", ") + ")"
}
