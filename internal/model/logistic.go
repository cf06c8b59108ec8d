// Package model fits the single-feature logistic classifier used to score odds rows.
//
// The training label is derived from the same price used as the only feature
// (label = price < 0), so the classifier learns the sign of the price and test
// accuracy approaches 1 by construction. This is kept as-is until a real
// outcome label exists.
package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"odds-picks/internal/odds"
)

var (
	// ErrInsufficientData means fewer than two priced rows were available.
	ErrInsufficientData = errors.New("model: at least two priced rows are required")
	// ErrSingleClass means the training split contains only one label.
	ErrSingleClass = errors.New("model: training split contains a single class")
)

// Options tune training.
type Options struct {
	TestRatio     float64
	Seed          int64
	MaxIterations int
	// C is the inverse L2 regularisation strength.
	C float64
}

// DefaultOptions mirror a stock logistic regression: 80/20 split, seed 42, C=1.
func DefaultOptions() Options {
	return Options{TestRatio: 0.2, Seed: 42, MaxIterations: 100, C: 1}
}

// Logistic maps a price onto P(label = 1).
type Logistic struct {
	Weight    float64
	Intercept float64
	Mean      float64
	Scale     float64
}

// Probability returns the positive-class probability for price.
func (m *Logistic) Probability(price float64) float64 {
	return sigmoid(m.Weight*m.standardise(price) + m.Intercept)
}

// Predict returns the hard 0/1 decision at 0.5.
func (m *Logistic) Predict(price float64) int {
	if m.Probability(price) >= 0.5 {
		return 1
	}
	return 0
}

func (m *Logistic) standardise(price float64) float64 {
	return (price - m.Mean) / m.Scale
}

// Result is the outcome of one training pass.
type Result struct {
	Model     *Logistic
	Accuracy  float64
	TrainSize int
	TestSize  int
}

// Label is 1 when the price marks a favourite.
func Label(price float64) int {
	if price < 0 {
		return 1
	}
	return 0
}

// Priced drops rows without a price.
func Priced(rows []odds.Row) []odds.Row {
	out := make([]odds.Row, 0, len(rows))
	for _, row := range rows {
		if row.HasPrice() {
			out = append(out, row)
		}
	}
	return out
}

// Split shuffles 0..n-1 with seed and cuts off ceil(testRatio*n) test indices.
func Split(n int, testRatio float64, seed int64) (train, test []int) {
	if n <= 0 {
		return nil, nil
	}
	testSize := int(math.Ceil(testRatio * float64(n)))
	if testSize < 1 && n > 1 {
		testSize = 1
	}
	if testSize >= n {
		testSize = n - 1
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[testSize:], perm[:testSize]
}

// Train drops unpriced rows, splits, fits and scores the classifier.
func Train(rows []odds.Row, opts Options) (Result, error) {
	if opts.C <= 0 {
		opts.C = 1
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}
	if opts.TestRatio <= 0 || opts.TestRatio >= 1 {
		opts.TestRatio = 0.2
	}

	priced := Priced(rows)
	if len(priced) < 2 {
		return Result{}, ErrInsufficientData
	}

	prices := make([]float64, len(priced))
	labels := make([]float64, len(priced))
	for i, row := range priced {
		prices[i] = row.PriceFloat()
		labels[i] = float64(Label(prices[i]))
	}

	trainIdx, testIdx := Split(len(priced), opts.TestRatio, opts.Seed)
	xTrain, yTrain := gather(prices, trainIdx), gather(labels, trainIdx)
	if stat.Mean(yTrain, nil) == 0 || stat.Mean(yTrain, nil) == 1 {
		return Result{}, ErrSingleClass
	}

	model, err := fit(xTrain, yTrain, opts)
	if err != nil {
		return Result{}, err
	}

	correct := 0
	for _, i := range testIdx {
		if float64(model.Predict(prices[i])) == labels[i] {
			correct++
		}
	}

	return Result{
		Model:     model,
		Accuracy:  float64(correct) / float64(len(testIdx)),
		TrainSize: len(trainIdx),
		TestSize:  len(testIdx),
	}, nil
}

func fit(x, y []float64, opts Options) (*Logistic, error) {
	mean, std := stat.PopMeanStdDev(x, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1
	}
	m := &Logistic{Mean: mean, Scale: std}

	z := make([]float64, len(x))
	for i := range x {
		z[i] = m.standardise(x[i])
	}

	// params[0] is the weight, params[1] the unpenalised intercept.
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			w, b := params[0], params[1]
			loss := 0.5 * w * w / opts.C
			for i := range z {
				loss += logLoss(w*z[i]+b, y[i])
			}
			return loss
		},
		Grad: func(grad, params []float64) {
			w, b := params[0], params[1]
			grad[0] = w / opts.C
			grad[1] = 0
			for i := range z {
				residual := sigmoid(w*z[i]+b) - y[i]
				grad[0] += residual * z[i]
				grad[1] += residual
			}
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: 1e-6,
		MajorIterations:   opts.MaxIterations,
	}
	result, err := optimize.Minimize(problem, []float64{0, 0}, settings, &optimize.LBFGS{})
	if err != nil && result == nil {
		return nil, fmt.Errorf("fit logistic model: %w", err)
	}

	m.Weight, m.Intercept = result.X[0], result.X[1]
	if math.IsNaN(m.Weight) || math.IsNaN(m.Intercept) {
		return nil, fmt.Errorf("fit logistic model: optimiser diverged")
	}
	return m, nil
}

// logLoss is the numerically stable binary cross-entropy for logit t.
func logLoss(t, y float64) float64 {
	// log(1+exp(t)) - y*t
	var softplus float64
	if t > 0 {
		softplus = t + math.Log1p(math.Exp(-t))
	} else {
		softplus = math.Log1p(math.Exp(t))
	}
	return softplus - y*t
}

func sigmoid(t float64) float64 {
	if t >= 0 {
		return 1 / (1 + math.Exp(-t))
	}
	e := math.Exp(t)
	return e / (1 + e)
}

func gather(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
