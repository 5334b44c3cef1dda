package slot

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"sync"
)

// RandomGenerator 随机数生成器接口
type RandomGenerator interface {
	// Next 生成 [0,1) 区间的随机数
	Next() float64
}

// CryptoRandomGenerator 加密安全的随机数生成器
type CryptoRandomGenerator struct{}

// NewCryptoRandomGenerator 创建加密随机数生成器
func NewCryptoRandomGenerator() *CryptoRandomGenerator {
	return &CryptoRandomGenerator{}
}

// Next 取53位随机整数映射到 [0,1)
func (g *CryptoRandomGenerator) Next() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand 在受支持的平台上不会失败
		panic(err)
	}
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

// SeededRandomGenerator 可复现的伪随机数生成器（模拟、测试用）
type SeededRandomGenerator struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededRandomGenerator 使用固定种子创建
func NewSeededRandomGenerator(seed uint64) *SeededRandomGenerator {
	return &SeededRandomGenerator{
		rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next 生成 [0,1) 区间的随机数
func (g *SeededRandomGenerator) Next() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

// SequenceGenerator 按顺序循环返回预设值
type SequenceGenerator struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewSequenceGenerator 创建序列生成器，values 为空时恒返回0
func NewSequenceGenerator(values ...float64) *SequenceGenerator {
	return &SequenceGenerator{values: values}
}

// Next 返回下一个预设值
func (g *SequenceGenerator) Next() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.values) == 0 {
		return 0
	}
	v := g.values[g.pos%len(g.values)]
	g.pos++
	return v
}
