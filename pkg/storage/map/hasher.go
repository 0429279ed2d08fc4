package sharded

import (
	"encoding/binary"
	"math"
	"reflect"

	"github.com/zeebo/xxh3"
)

// Hasher maps a key onto a bucket selector. Keys equal under == must
// produce equal hashes.
type Hasher[K comparable] func(key K) uint64

// DefaultHasher hashes keys with xxh3. Strings and machine integers take a
// direct path, any other comparable key is hashed field by field with
// floats normalized, so 0 and -0 share a bucket.
func DefaultHasher[K comparable]() Hasher[K] {
	return func(key K) uint64 {
		var buf [8]byte
		switch k := any(key).(type) {
		case string:
			return xxh3.HashString(k)
		case int:
			binary.LittleEndian.PutUint64(buf[:], uint64(k))
		case int64:
			binary.LittleEndian.PutUint64(buf[:], uint64(k))
		case uint64:
			binary.LittleEndian.PutUint64(buf[:], k)
		case uintptr:
			binary.LittleEndian.PutUint64(buf[:], uint64(k))
		default:
			h := xxh3.New()
			writeValue(h, reflect.ValueOf(any(key)))
			return h.Sum64()
		}
		return xxh3.Hash(buf[:])
	}
}

func writeValue(h *xxh3.Hasher, v reflect.Value) {
	var buf [8]byte
	word := func(u uint64) {
		binary.LittleEndian.PutUint64(buf[:], u)
		_, _ = h.Write(buf[:])
	}

	switch v.Kind() {
	case reflect.Invalid:
		word(0)
	case reflect.Bool:
		if v.Bool() {
			word(1)
		} else {
			word(0)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		word(uint64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		word(v.Uint())
	case reflect.Float32, reflect.Float64:
		word(floatBits(v.Float()))
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		word(floatBits(real(c)))
		word(floatBits(imag(c)))
	case reflect.String:
		word(uint64(v.Len()))
		_, _ = h.WriteString(v.String())
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		word(uint64(v.Pointer()))
	case reflect.Interface:
		if v.IsNil() {
			word(0)
			return
		}
		writeValue(h, v.Elem())
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			writeValue(h, v.Index(i))
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			// == ignores blank fields
			if t.Field(i).Name == "_" {
				continue
			}
			writeValue(h, v.Field(i))
		}
	default:
		panic("sharded: key of kind " + v.Kind().String() + " is not hashable")
	}
}

func floatBits(f float64) uint64 {
	if f == 0 {
		f = 0 // -0 == 0
	}
	return math.Float64bits(f)
}
