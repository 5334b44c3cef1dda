package slot

import (
	"math"
	"testing"
)

func TestSymbolTable(t *testing.T) {
	tests := []struct {
		name        string
		symbol      Symbol
		probability float64
		payout      int64
	}{
		{name: "樱桃", symbol: SymbolCherry, probability: 0.40, payout: 2},
		{name: "BAR", symbol: SymbolBar, probability: 0.30, payout: 5},
		{name: "铃铛", symbol: SymbolBell, probability: 0.20, payout: 10},
		{name: "七", symbol: SymbolSeven, probability: 0.10, payout: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := GetSymbolInfo(tt.symbol)
			if !ok {
				t.Fatalf("GetSymbolInfo(%s) not found", tt.symbol)
			}
			if info.Probability != tt.probability {
				t.Errorf("Probability = %v, want %v", info.Probability, tt.probability)
			}
			if info.Payout != tt.payout {
				t.Errorf("Payout = %v, want %v", info.Payout, tt.payout)
			}
			if PayoutMultiplier(tt.symbol) != tt.payout {
				t.Errorf("PayoutMultiplier = %v, want %v", PayoutMultiplier(tt.symbol), tt.payout)
			}
		})
	}
}

func TestSymbolProbabilitiesSumToOne(t *testing.T) {
	sum := 0.0
	for _, info := range Symbols() {
		if info.Probability <= 0 || info.Probability > 1 {
			t.Errorf("%s probability %v out of (0,1]", info.Symbol, info.Probability)
		}
		if info.Payout < 1 {
			t.Errorf("%s payout %v < 1", info.Symbol, info.Payout)
		}
		sum += info.Probability
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("probability sum = %v, want 1", sum)
	}
}

func TestSymbolsOrderIsStable(t *testing.T) {
	want := []Symbol{SymbolCherry, SymbolBar, SymbolBell, SymbolSeven}
	got := Symbols()
	if len(got) != len(want) {
		t.Fatalf("len(Symbols()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Symbol != want[i] {
			t.Errorf("Symbols()[%d] = %s, want %s", i, got[i].Symbol, want[i])
		}
	}

	// 修改副本不影响符号表
	got[0].Payout = 999
	if PayoutMultiplier(SymbolCherry) != 2 {
		t.Error("Symbols() must return a copy")
	}
}

func TestUnknownSymbol(t *testing.T) {
	if Symbol("lemon").IsValid() {
		t.Error("lemon should not be a valid symbol")
	}
	if PayoutMultiplier(Symbol("lemon")) != 0 {
		t.Error("unknown symbol payout should be 0")
	}
}
