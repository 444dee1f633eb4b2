package reflector

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type testStruct struct {
	Name string
}

func TestTypeInfoOf(t *testing.T) {
	ti := TypeInfoOf(testStruct{Name: "test"})
	require.Equal(t, "github.com/codewandler/tedge-go/internal/reflector.testStruct", ti.Name)
	require.Equal(t, "reflector.testStruct", ti.Short)
	require.Equal(t, "testStruct", ti.Type.Name())
}

func TestTypeInfoOf_pointer(t *testing.T) {
	require.Equal(t, TypeInfoOf(testStruct{}), TypeInfoOf(&testStruct{}))
}

func TestTypeInfoOf_builtin_and_unnamed(t *testing.T) {
	require.Equal(t, "int", TypeInfoOf(42).Name)
	require.Equal(t, "[]uint8", TypeInfoOf([]byte("x")).Name)
	require.Equal(t, "nil", TypeInfoOf(nil).Name)
}

func TestTypeInfoFor_matches_TypeInfoOf(t *testing.T) {
	require.Equal(t, TypeInfoOf(testStruct{}).Name, TypeInfoFor[testStruct]().Name)
	require.Equal(t, TypeInfoOf(testStruct{}).Name, TypeInfoFor[*testStruct]().Name)
}

func TestTypeInfo_concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = TypeInfoOf(testStruct{})
			_ = TypeInfoFor[int]()
		}()
	}
	wg.Wait()
}
