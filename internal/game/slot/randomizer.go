package slot

// Randomizer 按权重为单个卷轴抽取符号
type Randomizer struct {
	gen RandomGenerator
}

// NewRandomizer 创建抽取器，gen 为 nil 时使用加密随机数
func NewRandomizer(gen RandomGenerator) *Randomizer {
	if gen == nil {
		gen = NewCryptoRandomGenerator()
	}
	return &Randomizer{gen: gen}
}

// Draw 抽取一个符号
func (r *Randomizer) Draw() Symbol {
	return SymbolFor(r.gen.Next())
}

// SymbolFor 按固定顺序返回第一个累计概率 >= u 的符号，u 超出 [0,1) 时返回最后一个符号
func SymbolFor(u float64) Symbol {
	for i, bound := range cumulativeBounds {
		if u <= bound {
			return symbolTable[i].Symbol
		}
	}
	return symbolTable[len(symbolTable)-1].Symbol
}
