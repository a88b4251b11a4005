package indicators

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if Valid(out[0]) || Valid(out[1]) {
		t.Errorf("expected warm-up NaNs, got %v", out[:2])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if math.Abs(out[i+2]-w) > eps {
			t.Errorf("SMA[%d]: expected %f, got %f", i+2, w, out[i+2])
		}
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	out := EMA([]float64{2, 4, 6, 8}, 3)
	if math.Abs(out[2]-4) > eps {
		t.Errorf("expected seed 4, got %f", out[2])
	}
	// k = 0.5: (8-4)*0.5 + 4 = 6
	if math.Abs(out[3]-6) > eps {
		t.Errorf("expected 6, got %f", out[3])
	}
}

func TestRSI_Bounds(t *testing.T) {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(i + 1)
	}
	out := RSI(rising, 14)
	if Valid(out[13]) {
		t.Error("expected NaN before period")
	}
	if out[14] != 100 {
		t.Errorf("expected RSI 100 on strictly rising input, got %f", out[14])
	}

	flat := []float64{5, 5, 5, 5, 5}
	if got := RSI(flat, 3)[4]; got != 50 {
		t.Errorf("expected neutral RSI on flat input, got %f", got)
	}
}

func TestATR_ConstantRange(t *testing.T) {
	high := []float64{11, 11, 11, 11, 11}
	low := []float64{9, 9, 9, 9, 9}
	closes := []float64{10, 10, 10, 10, 10}
	out := ATR(high, low, closes, 3)
	if math.Abs(out[3]-2) > eps || math.Abs(out[4]-2) > eps {
		t.Errorf("expected ATR 2, got %v", out)
	}
}

func TestBollinger_FlatSeries(t *testing.T) {
	mid, upper, lower := Bollinger([]float64{3, 3, 3, 3}, 2, 2)
	if mid[3] != 3 || upper[3] != 3 || lower[3] != 3 {
		t.Errorf("expected collapsed bands at 3, got %f %f %f", mid[3], upper[3], lower[3])
	}
}

func TestMACD_Trend(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	line, sig, _ := MACD(closes, 12, 26, 9)
	if !Valid(line[59]) || !Valid(sig[59]) {
		t.Fatal("expected valid MACD at end of series")
	}
	if line[59] <= 0 {
		t.Errorf("expected positive MACD in uptrend, got %f", line[59])
	}
}

func TestPearson(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	if got := Pearson(a, []float64{2, 4, 6, 8}); math.Abs(got-1) > eps {
		t.Errorf("expected 1, got %f", got)
	}
	if got := Pearson(a, []float64{8, 6, 4, 2}); math.Abs(got+1) > eps {
		t.Errorf("expected -1, got %f", got)
	}
	if got := Pearson(a, []float64{1, 1, 1, 1}); got != 0 {
		t.Errorf("expected 0 for constant sample, got %f", got)
	}
}
