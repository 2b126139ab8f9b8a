package ocr

import (
	"sort"
	"strings"
	"sync"
)

var (
	cacheMu sync.Mutex
	engines = map[string]Engine{}
)

// EngineFor returns a shared engine for the language set and
// acceleration preference, building one on first use. Extra options
// apply only when the engine is built; the cache key stays the
// language set plus the acceleration flag.
func EngineFor(binary string, languages []string, useGPU bool, opts ...Option) Engine {
	key := cacheKey(languages, useGPU)

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if engine, ok := engines[key]; ok {
		return engine
	}
	base := []Option{WithBinary(binary), WithLanguages(languages), WithGPU(useGPU)}
	engine := NewTesseract(append(base, opts...)...)
	engines[key] = engine
	return engine
}

func cacheKey(languages []string, useGPU bool) string {
	sorted := append([]string(nil), languages...)
	sort.Strings(sorted)
	key := strings.Join(sorted, "+")
	if useGPU {
		key += "|gpu"
	}
	return key
}

// ResetEngines clears the shared cache. Tests use it to force rebuilds.
func ResetEngines() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	engines = map[string]Engine{}
}
