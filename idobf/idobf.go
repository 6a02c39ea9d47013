// Package idobf turns integer entity ids into opaque, reversible strings
// for use in external references.
//
// An encoded id is a two hex digit type tag followed by the id multiplied
// by a fixed odd constant modulo 2^36, written as grouped hex:
//
//	obf, _ := idobf.New(map[string]uint8{"Preprint": 0x0A})
//	s, _ := obf.Encode("Preprint", 1)   // "0AD53-D3E-6F5"
//	typ, id, _ := obf.Decode(s)         // "Preprint", 1
//
// This hides sequential ids; it is not encryption. The constants are fixed
// so ids stay valid across restarts.
package idobf

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/syssam/sharegraph"
	"github.com/syssam/sharegraph/schema"
)

const (
	// Modulus bounds both raw and encoded ids.
	Modulus = 1 << 36
	// Salt is the odd multiplier applied on encode.
	Salt = 0xD53D3E6F5
	// Inverse is the multiplicative inverse of Salt modulo Modulus.
	Inverse = 0xFD7E7155D
)

var pattern = regexp.MustCompile(`^([0-9A-Fa-f]{2})([0-9A-Fa-f]{3})-([0-9A-Fa-f]{3})-([0-9A-Fa-f]{3})$`)

// Entity is anything that can be referenced by an obfuscated id.
type Entity interface {
	TypeName() string
	EntityID() int64
}

// Obfuscator encodes and decodes ids for a fixed set of type tags. It is
// safe for concurrent use.
type Obfuscator struct {
	tags  map[string]uint8 // folded type name -> tag
	names map[uint8]string // tag -> type name
}

// New returns an obfuscator for the given type tags. Every type needs its
// own tag.
func New(tags map[string]uint8) (*Obfuscator, error) {
	o := &Obfuscator{
		tags:  make(map[string]uint8, len(tags)),
		names: make(map[uint8]string, len(tags)),
	}
	for name, tag := range tags {
		if prev, ok := o.names[tag]; ok {
			return nil, fmt.Errorf("idobf: tag %02X used by both %s and %s", tag, prev, name)
		}
		k := schema.Fold(name)
		if _, ok := o.tags[k]; ok {
			return nil, fmt.Errorf("idobf: type %s registered twice", name)
		}
		o.tags[k] = tag
		o.names[tag] = name
	}
	return o, nil
}

// Encode returns the obfuscated form of id for the given type.
func (o *Obfuscator) Encode(typeName string, id int64) (string, error) {
	tag, ok := o.tags[schema.Fold(typeName)]
	if !ok {
		return "", &sharegraph.KeyError{Kind: sharegraph.KindTag, Type: typeName}
	}
	if id < 0 || id >= Modulus {
		return "", &sharegraph.FormatError{Input: strconv.FormatInt(id, 10), Reason: "id out of range"}
	}
	s := fmt.Sprintf("%02X%09X", tag, mulmod(uint64(id), Salt))
	return s[:5] + "-" + s[5:8] + "-" + s[8:], nil
}

// EncodeEntity encodes an entity by its type name and id.
func (o *Obfuscator) EncodeEntity(e Entity) (string, error) {
	return o.Encode(e.TypeName(), e.EntityID())
}

// Decode returns the type name and id behind an obfuscated id. Input of
// the wrong shape fails with a *sharegraph.FormatError; a well formed id
// with an unknown tag fails with a *sharegraph.KeyError.
func (o *Obfuscator) Decode(s string) (string, int64, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return "", 0, &sharegraph.FormatError{Input: s, Reason: "expected HHHHH-HHH-HHH"}
	}
	tag, err := strconv.ParseUint(m[1], 16, 8)
	if err != nil {
		return "", 0, &sharegraph.FormatError{Input: s, Reason: err.Error()}
	}
	enc, err := strconv.ParseUint(m[2]+m[3]+m[4], 16, 64)
	if err != nil {
		return "", 0, &sharegraph.FormatError{Input: s, Reason: err.Error()}
	}
	name, ok := o.names[uint8(tag)]
	if !ok {
		return "", 0, &sharegraph.KeyError{Kind: sharegraph.KindTag, Type: m[1]}
	}
	return name, int64(mulmod(enc, Inverse)), nil
}

// mulmod returns a*b mod Modulus. Only the low 36 bits of the product
// matter, so wrapping 64-bit multiplication is exact.
func mulmod(a, b uint64) uint64 {
	return (a * b) & (Modulus - 1)
}
