package model

import (
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"odds-picks/internal/odds"
)

func priced(team string, price int64) odds.Row {
	return odds.Row{
		SportKey:  "basketball_nba",
		MarketKey: "h2h",
		Team:      team,
		Price:     decimal.NewNullDecimal(decimal.NewFromInt(price)),
		Timestamp: time.Now().UTC(),
	}
}

func americanBook() []odds.Row {
	rows := make([]odds.Row, 0, 80)
	for p := int64(-400); p <= -105; p += 15 {
		rows = append(rows, priced("fav", p))
	}
	for p := int64(100); p <= 400; p += 15 {
		rows = append(rows, priced("dog", p))
	}
	return rows
}

func TestLabel(t *testing.T) {
	cases := map[float64]int{-150: 1, -0.5: 1, 0: 0, 130: 0, 1.91: 0}
	for price, want := range cases {
		if got := Label(price); got != want {
			t.Fatalf("Label(%v) = %d, want %d", price, got, want)
		}
	}
}

func TestPricedDropsNulls(t *testing.T) {
	rows := []odds.Row{priced("a", -110), {Team: "b"}, priced("c", 120)}
	out := Priced(rows)
	if len(out) != 2 {
		t.Fatalf("expected 2 priced rows, got %d", len(out))
	}
	for _, row := range out {
		if !row.HasPrice() {
			t.Fatalf("row %q has no price", row.Team)
		}
	}
}

func TestSplitDeterministicPartition(t *testing.T) {
	train, test := Split(10, 0.2, 42)
	if len(test) != 2 || len(train) != 8 {
		t.Fatalf("expected 8/2 split, got %d/%d", len(train), len(test))
	}

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	for i, v := range all {
		if v != i {
			t.Fatalf("split is not a partition of 0..9: %v", all)
		}
	}

	train2, test2 := Split(10, 0.2, 42)
	for i := range test {
		if test[i] != test2[i] {
			t.Fatal("same seed must produce the same split")
		}
	}
	for i := range train {
		if train[i] != train2[i] {
			t.Fatal("same seed must produce the same split")
		}
	}
}

func TestSplitRoundsTestSizeUp(t *testing.T) {
	train, test := Split(2, 0.2, 42)
	if len(test) != 1 || len(train) != 1 {
		t.Fatalf("expected 1/1 split, got %d/%d", len(train), len(test))
	}
	train, test = Split(11, 0.2, 1)
	if len(test) != 3 || len(train) != 8 {
		t.Fatalf("expected ceil(2.2)=3 test rows, got %d/%d", len(train), len(test))
	}
	if train, test := Split(0, 0.2, 1); train != nil || test != nil {
		t.Fatal("empty input should produce empty split")
	}
}

func TestTrainSeparatesFavourites(t *testing.T) {
	rows := americanBook()
	rows = append(rows, odds.Row{Team: "unpriced"})

	res, err := Train(rows, DefaultOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if res.TrainSize+res.TestSize != len(rows)-1 {
		t.Fatalf("unpriced row must be excluded, got %d+%d", res.TrainSize, res.TestSize)
	}
	if res.Accuracy < 0.95 {
		t.Fatalf("sign-derived label should be learned almost perfectly, accuracy=%.3f", res.Accuracy)
	}

	fav := res.Model.Probability(-150)
	dog := res.Model.Probability(130)
	if fav <= 0.6 {
		t.Fatalf("expected confidence(-150) > 0.6, got %.3f", fav)
	}
	if dog >= 0.5 {
		t.Fatalf("expected confidence(+130) < 0.5, got %.3f", dog)
	}
	if res.Model.Probability(-400) < fav {
		t.Fatal("probability should increase as the price gets more negative")
	}
	for _, p := range []float64{-1e6, -150, 0, 130, 1e6} {
		prob := res.Model.Probability(p)
		if prob < 0 || prob > 1 || math.IsNaN(prob) {
			t.Fatalf("probability out of range for %v: %v", p, prob)
		}
	}
}

func TestTrainIsReproducible(t *testing.T) {
	first, err := Train(americanBook(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Train(americanBook(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if first.Model.Weight != second.Model.Weight || first.Accuracy != second.Accuracy {
		t.Fatal("fixed seed must give identical models")
	}
}

func TestTrainErrors(t *testing.T) {
	if _, err := Train([]odds.Row{priced("a", -110), {Team: "b"}}, DefaultOptions()); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}

	allFavourites := []odds.Row{priced("a", -110), priced("b", -120), priced("c", -130), priced("d", -140), priced("e", -150)}
	if _, err := Train(allFavourites, DefaultOptions()); !errors.Is(err, ErrSingleClass) {
		t.Fatalf("expected ErrSingleClass, got %v", err)
	}
}
