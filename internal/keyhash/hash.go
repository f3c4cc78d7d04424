package keyhash

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"io"
	"sync"

	"github.com/goccy/go-reflect"
)

var (
	// keyHashMapMutex guards keyHashMap.
	keyHashMapMutex = sync.RWMutex{}
	// keyHashMap caches hash functions by key type name.
	keyHashMap = map[string]func(any) int{}
)

// GetOrCreateKeyHash returns a hash function for the key type K.
// Keys must be of a string or integer kind; named types such as `type ID string` are supported.
// Hash functions are cached per type.
func GetOrCreateKeyHash[K comparable]() func(any) int {
	var zero K
	typ := reflect.TypeOf(zero)
	if typ == nil {
		panic("interface types cannot be hash keys")
	}

	name := typ.String()
	keyHashMapMutex.RLock()
	if f, ok := keyHashMap[name]; ok {
		keyHashMapMutex.RUnlock()
		return f
	}
	keyHashMapMutex.RUnlock()

	keyHashMapMutex.Lock()
	defer keyHashMapMutex.Unlock()
	if f, ok := keyHashMap[name]; ok {
		return f
	}
	f := createKeyHash(typ.Kind())
	keyHashMap[name] = f
	return f
}

// createKeyHash creates an FNV-1a based hash function for keys of the given kind.
func createKeyHash(kind reflect.Kind) func(any) int {
	switch kind {
	case reflect.String:
		return func(v any) int {
			if s, ok := v.(string); ok {
				return hashString(s)
			}
			return hashString(reflect.ValueOf(v).String())
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(v any) int {
			return hashUint64(uint64(reflect.ValueOf(v).Int()))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(v any) int {
			return hashUint64(reflect.ValueOf(v).Uint())
		}
	default:
		panic(fmt.Sprintf("unsupported key kind: %s", kind))
	}
}

// hashPool is a pool for 64-bit FNV-1a hash objects.
var hashPool = sync.Pool{
	New: func() any {
		return fnv.New64a()
	},
}

func hashString(s string) int {
	h := hashPool.Get().(hash.Hash64)
	defer func() {
		h.Reset()
		hashPool.Put(h)
	}()
	_, _ = io.WriteString(h, s)
	return int(h.Sum64())
}

func hashUint64(u uint64) int {
	h := hashPool.Get().(hash.Hash64)
	defer func() {
		h.Reset()
		hashPool.Put(h)
	}()
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], u)
	_, _ = h.Write(b[:])
	return int(h.Sum64())
}
