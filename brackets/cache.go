package brackets

import (
	"sort"
	"sync"
	"time"
)

const (
	defaultCacheMaxKeys   = 256
	defaultCacheIdleEvict = 30 * time.Minute
)

// checkpoint — одна контрольная точка конца раунда: какие результаты стадии
// были учтены и непрозрачное состояние симулятора после них.
type checkpoint struct {
	tokens []string
	state  interface{}
}

type cacheEntry struct {
	// bySize: число учтенных результатов -> контрольные точки этого размера.
	bySize     map[int][]checkpoint
	lastAccess time.Time
}

// EndOfRoundCache — внедряемый, ограниченный по размеру и времени кеш
// контрольных точек конца раунда. Делает стоимость пересчета
// пропорциональной результатам, накопленным после последнего полностью
// разрешенного раунда. Безопасен для конкурентного доступа. Пути с кешем и
// без него обязаны давать одинаковый ответ: расхождение — дефект, а не
// условие времени выполнения.
type EndOfRoundCache struct {
	mu        sync.RWMutex
	enabled   bool
	entries   map[string]*cacheEntry
	maxKeys   int
	idleEvict time.Duration
	now       func() time.Time
}

// NewEndOfRoundCache создает кеш. Флаг enabled заменяет глобальный
// выключатель: тесты строят отдельный отключенный экземпляр, и вычисление
// всегда переигрывается с начала стадии.
func NewEndOfRoundCache(enabled bool) *EndOfRoundCache {
	return &EndOfRoundCache{
		enabled:   enabled,
		entries:   make(map[string]*cacheEntry),
		maxKeys:   defaultCacheMaxKeys,
		idleEvict: defaultCacheIdleEvict,
		now:       time.Now,
	}
}

// WithLimits настраивает емкость и окно простоя.
func (c *EndOfRoundCache) WithLimits(maxKeys int, idleEvict time.Duration) *EndOfRoundCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	if maxKeys > 0 {
		c.maxKeys = maxKeys
	}
	if idleEvict > 0 {
		c.idleEvict = idleEvict
	}
	return c
}

// Enabled сообщает, включен ли кеш.
func (c *EndOfRoundCache) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Lookup возвращает состояние самой большой контрольной точки, чей набор
// результатов полностью содержится в have: самый длинный префикс завершенных
// раундов, совместимый с известным сейчас. Порядок поступления результатов
// значения не имеет.
func (c *EndOfRoundCache) Lookup(key string, have map[string]struct{}) (interface{}, bool) {
	if !c.Enabled() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry.lastAccess = c.now()

	sizes := make([]int, 0, len(entry.bySize))
	for size := range entry.bySize {
		if size <= len(have) {
			sizes = append(sizes, size)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))

	for _, size := range sizes {
		for _, cp := range entry.bySize[size] {
			if containsAll(have, cp.tokens) {
				return cp.state, true
			}
		}
	}
	return nil, false
}

// Store добавляет контрольную точку. Добавление только дописывает список
// своего размера; существующие точки не перезаписываются.
func (c *EndOfRoundCache) Store(key string, tokens []string, state interface{}) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.evictLocked()
		entry = &cacheEntry{bySize: make(map[int][]checkpoint)}
		c.entries[key] = entry
	}
	entry.lastAccess = c.now()

	size := len(tokens)
	for _, cp := range entry.bySize[size] {
		if sameTokens(cp.tokens, tokens) {
			return
		}
	}
	entry.bySize[size] = append(entry.bySize[size], checkpoint{
		tokens: append([]string(nil), tokens...),
		state:  state,
	})
}

// evictLocked освобождает место: сначала простаивающие ключи, затем, если
// емкость все еще исчерпана, самый давно использованный.
func (c *EndOfRoundCache) evictLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.lastAccess) > c.idleEvict {
			delete(c.entries, key)
		}
	}
	for len(c.entries) >= c.maxKeys {
		oldestKey := ""
		var oldest time.Time
		for key, entry := range c.entries {
			if oldestKey == "" || entry.lastAccess.Before(oldest) {
				oldestKey = key
				oldest = entry.lastAccess
			}
		}
		delete(c.entries, oldestKey)
	}
}

func containsAll(have map[string]struct{}, tokens []string) bool {
	for _, t := range tokens {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

func sameTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
