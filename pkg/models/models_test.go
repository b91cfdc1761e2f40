package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

// ── Value Tests ──

func TestValueOf(t *testing.T) {
	if Of(math.NaN()).Defined() {
		t.Error("Of(NaN) should be undefined")
	}
	v := Of(1.5)
	if f, ok := v.Get(); !ok || f != 1.5 {
		t.Errorf("Of(1.5).Get() = %v, %v", f, ok)
	}
	if !Infinite().IsInf() || !Infinite().Defined() {
		t.Error("Infinite() should be a defined infinity")
	}
	if got := Undefined().Or(7); got != 7 {
		t.Errorf("Undefined().Or(7) = %v", got)
	}
	if !math.IsNaN(Undefined().Float()) {
		t.Error("Undefined().Float() should be NaN")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Undefined(), "n/a"},
		{Infinite(), "+Inf"},
		{Of(math.Inf(-1)), "-Inf"},
		{Of(0.12345), "0.1235"},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueJSON(t *testing.T) {
	type doc struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
	}
	data, err := json.Marshal(doc{A: Of(2.5), C: Infinite()})
	if err != nil {
		t.Fatalf("json.Marshal error: %v", err)
	}
	if string(data) != `{"a":2.5,"b":null,"c":"+Inf"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var decoded doc
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if decoded.A.Or(0) != 2.5 || decoded.B.Defined() || !decoded.C.IsInf() {
		t.Errorf("decoded mismatch: %+v", decoded)
	}

	var bad Value
	if err := json.Unmarshal([]byte(`"x"`), &bad); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

// ── Line Tests ──

func TestLine(t *testing.T) {
	l := NewLine(4)
	if l.DefinedCount() != 0 {
		t.Errorf("NewLine should be all undefined, got %d defined", l.DefinedCount())
	}
	l[2], l[3] = 10, 20
	if l.Last().Or(0) != 20 || l.FromEnd(1).Or(0) != 10 {
		t.Errorf("Last/FromEnd mismatch: %v %v", l.Last(), l.FromEnd(1))
	}
	if l.At(-1).Defined() || l.At(4).Defined() || l.At(0).Defined() {
		t.Error("out-of-range and NaN entries should be undefined")
	}
	if l.DefinedCount() != 2 {
		t.Errorf("DefinedCount() = %d, want 2", l.DefinedCount())
	}
}

func TestIndicatorFrame(t *testing.T) {
	f := UndefinedFrame(3)
	if len(f.Lines) != len(IndicatorNames) {
		t.Errorf("expected %d lines, got %d", len(IndicatorNames), len(f.Lines))
	}
	if f.Latest(IndRSI).Defined() {
		t.Error("undefined frame should have undefined RSI")
	}
	f.Lines[IndRSI] = Line{1, 2, 3}
	if f.Latest(IndRSI).Or(0) != 3 {
		t.Errorf("Latest(rsi) = %v", f.Latest(IndRSI))
	}
	// a misaligned line is treated as absent
	f.Lines[IndATR] = Line{1}
	if f.Latest(IndATR).Defined() {
		t.Error("misaligned line should read as undefined")
	}
}

// ── Series Tests ──

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestSeriesValidate(t *testing.T) {
	ok := Series{{Timestamp: day(1), Close: 1}, {Timestamp: day(2), Close: 2}}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
	dup := Series{{Timestamp: day(1), Close: 1}, {Timestamp: day(1).Add(time.Hour), Close: 2}}
	if err := dup.Validate(); !errors.Is(err, ErrUnsortedSeries) {
		t.Errorf("expected ErrUnsortedSeries, got %v", err)
	}
}

func TestNormalizeSeries(t *testing.T) {
	in := []OHLCV{
		{Timestamp: day(3).Add(16 * time.Hour), Close: 3},
		{Timestamp: day(1), Close: 1},
		{Timestamp: day(2), Close: 0},
		{Timestamp: day(1).Add(time.Hour), Close: 1.5},
	}
	s := NormalizeSeries(in)
	if len(s) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(s))
	}
	if s[0].Close != 1.5 || !s[0].Timestamp.Equal(day(1)) {
		t.Errorf("expected last duplicate kept at midnight, got %+v", s[0])
	}
	if !s[1].Timestamp.Equal(day(3)) {
		t.Errorf("expected timestamp truncated to day, got %v", s[1].Timestamp)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("normalized series should validate: %v", err)
	}
}

func TestSeriesUntilAndAccessors(t *testing.T) {
	s := Series{
		{Timestamp: day(1), High: 2, Low: 0.5, Close: 1, Volume: 10},
		{Timestamp: day(2), High: 3, Low: 1.5, Close: 2, Volume: 20},
		{Timestamp: day(3), High: 4, Low: 2.5, Close: 3, Volume: 30},
	}
	if got := s.Until(day(2).Add(12 * time.Hour)); len(got) != 2 {
		t.Errorf("Until(day 2) = %d bars, want 2", len(got))
	}
	if got := s.Until(day(1).AddDate(0, 0, -1)); len(got) != 0 {
		t.Errorf("Until(before start) = %d bars, want 0", len(got))
	}
	if c := s.Closes(); c[2] != 3 {
		t.Errorf("Closes() = %v", c)
	}
	if v := s.Volumes(); v[1] != 20 {
		t.Errorf("Volumes() = %v", v)
	}
	if h, l := s.Highs(), s.Lows(); h[0] != 2 || l[0] != 0.5 {
		t.Errorf("Highs/Lows = %v %v", h, l)
	}
	if last, ok := s.Last(); !ok || last.Close != 3 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
	if _, ok := (Series{}).Last(); ok {
		t.Error("Last() on empty series should report false")
	}

	c := s.Clone()
	c[0].Close = 99
	if s[0].Close == 99 {
		t.Error("Clone should not share the backing array")
	}
}

// ── Error Tests ──

func TestErrors(t *testing.T) {
	err := &InsufficientDataError{Op: "beta", Need: 2, Have: 1}
	if !errors.Is(err, ErrInsufficientData) {
		t.Error("InsufficientDataError should match ErrInsufficientData")
	}
	if err.Error() != "beta: insufficient data: need 2, have 1" {
		t.Errorf("Error() = %q", err.Error())
	}

	cause := errors.New("boom")
	ce := &ComputationError{Component: "risk", Cause: cause}
	if !errors.Is(ce, cause) {
		t.Error("ComputationError should unwrap an error cause")
	}
	if (&ComputationError{Component: "risk", Cause: "index out of range"}).Unwrap() != nil {
		t.Error("non-error cause should unwrap to nil")
	}
}

func TestRecommendationIsBullish(t *testing.T) {
	for r, want := range map[Recommendation]bool{
		StrongBuy: true, Buy: true, Hold: false, Watch: false,
		Sell: false, WeakSell: false, Unable: false,
	} {
		if r.IsBullish() != want {
			t.Errorf("%s.IsBullish() = %v, want %v", r, !want, want)
		}
	}
}
