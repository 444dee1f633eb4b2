// Package reflector derives stable, cached names for Go types. The names
// label messages and actors in logs and metrics.
package reflector

import (
	"path"
	"reflect"
	"sync"
)

const maxCacheSize = 1024

var (
	muCache sync.RWMutex
	cache   = make(map[reflect.Type]TypeInfo)
)

type TypeInfo struct {
	Name  string // "pkg/path.TypeName", or the type literal for unnamed types
	Short string // "pkg.TypeName"
	Type  reflect.Type
}

func TypeInfoOf(x any) TypeInfo {
	return TypeInfoForType(reflect.TypeOf(x))
}

func TypeInfoFor[T any]() TypeInfo {
	return TypeInfoForType(reflect.TypeFor[T]())
}

// TypeInfoForType unwraps one level of pointer, so T and *T share a name.
func TypeInfoForType(t reflect.Type) TypeInfo {
	if t == nil {
		return TypeInfo{Name: "nil", Short: "nil"}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	muCache.RLock()
	ti, ok := cache[t]
	muCache.RUnlock()
	if ok {
		return ti
	}

	ti = TypeInfo{Type: t}
	switch {
	case t.Name() == "":
		ti.Name = t.String()
		ti.Short = ti.Name
	case t.PkgPath() == "":
		ti.Name = t.Name()
		ti.Short = ti.Name
	default:
		ti.Name = t.PkgPath() + "." + t.Name()
		ti.Short = path.Base(t.PkgPath()) + "." + t.Name()
	}

	muCache.Lock()
	if len(cache) >= maxCacheSize {
		cache = make(map[reflect.Type]TypeInfo)
	}
	cache[t] = ti
	muCache.Unlock()

	return ti
}
