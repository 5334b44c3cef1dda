package slot

// SymbolInfo 符号的概率与赔率
type SymbolInfo struct {
	Symbol      Symbol  `json:"symbol"`
	Probability float64 `json:"probability"` // 单卷轴出现概率
	Payout      int64   `json:"payout"`      // 三连时的投注倍数
}

// symbolTable 固定顺序：cherry, bar, bell, seven，概率之和为1
var symbolTable = [...]SymbolInfo{
	{Symbol: SymbolCherry, Probability: 0.40, Payout: 2},
	{Symbol: SymbolBar, Probability: 0.30, Payout: 5},
	{Symbol: SymbolBell, Probability: 0.20, Payout: 10},
	{Symbol: SymbolSeven, Probability: 0.10, Payout: 50},
}

// cumulativeBounds 与 symbolTable 一一对应的累计概率上界（字面量，不在运行时累加）
var cumulativeBounds = [len(symbolTable)]float64{0.40, 0.70, 0.90, 1.0}

// Symbols 返回符号表副本（按抽取顺序）
func Symbols() []SymbolInfo {
	out := make([]SymbolInfo, len(symbolTable))
	copy(out, symbolTable[:])
	return out
}

// GetSymbolInfo 获取符号信息
func GetSymbolInfo(s Symbol) (SymbolInfo, bool) {
	for _, info := range symbolTable {
		if info.Symbol == s {
			return info, true
		}
	}
	return SymbolInfo{}, false
}

// PayoutMultiplier 三连赔率，未知符号返回0
func PayoutMultiplier(s Symbol) int64 {
	info, ok := GetSymbolInfo(s)
	if !ok {
		return 0
	}
	return info.Payout
}

// IsValid 是否为四种固定符号之一
func (s Symbol) IsValid() bool {
	_, ok := GetSymbolInfo(s)
	return ok
}
