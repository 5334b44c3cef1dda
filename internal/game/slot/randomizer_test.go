package slot

import (
	"math"
	"testing"
)

func TestSymbolFor(t *testing.T) {
	tests := []struct {
		name string
		u    float64
		want Symbol
	}{
		{name: "零", u: 0, want: SymbolCherry},
		{name: "樱桃区间", u: 0.25, want: SymbolCherry},
		{name: "樱桃边界", u: 0.40, want: SymbolCherry},
		{name: "BAR区间", u: 0.55, want: SymbolBar},
		{name: "BAR边界", u: 0.70, want: SymbolBar},
		{name: "铃铛区间", u: 0.85, want: SymbolBell},
		{name: "铃铛边界", u: 0.90, want: SymbolBell},
		{name: "铃铛边界之后", u: math.Nextafter(0.90, 1), want: SymbolSeven},
		{name: "七区间", u: 0.95, want: SymbolSeven},
		{name: "最大值", u: math.Nextafter(1, 0), want: SymbolSeven},
		{name: "越界回退到最后一个符号", u: 1.5, want: SymbolSeven},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SymbolFor(tt.u); got != tt.want {
				t.Errorf("SymbolFor(%v) = %s, want %s", tt.u, got, tt.want)
			}
		})
	}
}

func TestCumulativeBoundsMatchProbabilities(t *testing.T) {
	sum := 0.0
	for i, info := range symbolTable {
		sum += info.Probability
		if math.Abs(cumulativeBounds[i]-sum) > 1e-12 {
			t.Errorf("%s 累计上界 %v, 概率累加 %v", info.Symbol, cumulativeBounds[i], sum)
		}
	}
	if cumulativeBounds[len(cumulativeBounds)-1] != 1.0 {
		t.Errorf("最后一个累计上界应为 1, got %v", cumulativeBounds[len(cumulativeBounds)-1])
	}
}

func TestRandomizer_AllSymbolsAppear(t *testing.T) {
	r := NewRandomizer(NewSeededRandomGenerator(42))
	counts := map[Symbol]int{}
	for i := 0; i < 900; i++ {
		counts[r.Draw()]++
	}
	for _, info := range Symbols() {
		if counts[info.Symbol] == 0 {
			t.Errorf("symbol %s never drawn", info.Symbol)
		}
	}
}

func TestRandomizer_Distribution(t *testing.T) {
	r := NewRandomizer(NewSeededRandomGenerator(7))
	const draws = 100000
	counts := map[Symbol]int{}
	for i := 0; i < draws; i++ {
		counts[r.Draw()]++
	}
	for _, info := range Symbols() {
		got := float64(counts[info.Symbol]) / draws
		if math.Abs(got-info.Probability) > 0.01 {
			t.Errorf("%s frequency = %.4f, want ≈ %.2f", info.Symbol, got, info.Probability)
		}
	}
}

func TestCryptoRandomGenerator_Range(t *testing.T) {
	g := NewCryptoRandomGenerator()
	for i := 0; i < 1000; i++ {
		v := g.Next()
		if v < 0 || v >= 1 {
			t.Fatalf("Next() = %v, want [0,1)", v)
		}
	}
}

func TestSeededRandomGenerator_Reproducible(t *testing.T) {
	a := NewSeededRandomGenerator(99)
	b := NewSeededRandomGenerator(99)
	for i := 0; i < 100; i++ {
		if a.Next() != b.Next() {
			t.Fatal("same seed must produce the same sequence")
		}
	}
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator(0.1, 0.9)
	want := []float64{0.1, 0.9, 0.1}
	for i, w := range want {
		if got := g.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	if NewSequenceGenerator().Next() != 0 {
		t.Error("empty sequence should return 0")
	}
}
