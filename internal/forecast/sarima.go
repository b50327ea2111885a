package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Order is the non-seasonal (p, d, q) order.
type Order struct {
	P, D, Q int
}

// SeasonalOrder is the seasonal (P, D, Q, s) order.
type SeasonalOrder struct {
	P, D, Q int
	Period  int
}

// ModelSpec describes a seasonal ARIMA model.
type ModelSpec struct {
	Order    Order
	Seasonal SeasonalOrder
}

// DefaultSpec is SARIMA(1,1,1)(1,1,1,7): weekly seasonality on daily data.
var DefaultSpec = ModelSpec{
	Order:    Order{P: 1, D: 1, Q: 1},
	Seasonal: SeasonalOrder{P: 1, D: 1, Q: 1, Period: 7},
}

var (
	ErrInvalidSpec    = errors.New("invalid model specification")
	ErrSeriesTooShort = errors.New("series too short for model")
)

// FitOptions tunes the optimizer.
type FitOptions struct {
	MaxEvaluations int
}

// DefaultFitOptions bounds the Nelder-Mead search.
var DefaultFitOptions = FitOptions{MaxEvaluations: 5000}

// penalty replaces non-finite objective values.
const penalty = 1e300

func (s ModelSpec) Validate() error {
	o, so := s.Order, s.Seasonal
	if o.P < 0 || o.D < 0 || o.Q < 0 || so.P < 0 || so.D < 0 || so.Q < 0 || so.Period < 0 {
		return fmt.Errorf("%w: negative order in %s", ErrInvalidSpec, s)
	}
	if so.P+so.D+so.Q > 0 && so.Period < 2 {
		return fmt.Errorf("%w: seasonal terms need a period of at least 2", ErrInvalidSpec)
	}
	return nil
}

// IsSeasonal reports whether the spec has any seasonal terms.
func (s ModelSpec) IsSeasonal() bool {
	so := s.Seasonal
	return so.Period >= 2 && so.P+so.D+so.Q > 0
}

// NonSeasonal drops the seasonal part.
func (s ModelSpec) NonSeasonal() ModelSpec {
	return ModelSpec{Order: s.Order}
}

// DifferencingLoss is how many observations differencing consumes.
func (s ModelSpec) DifferencingLoss() int {
	n := s.Order.D
	if s.IsSeasonal() {
		n += s.Seasonal.D * s.Seasonal.Period
	}
	return n
}

func (s ModelSpec) numParams() int {
	n := s.Order.P + s.Order.Q
	if s.IsSeasonal() {
		n += s.Seasonal.P + s.Seasonal.Q
	}
	return n
}

func (s ModelSpec) String() string {
	o := s.Order
	if !s.IsSeasonal() {
		return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
	}
	so := s.Seasonal
	return fmt.Sprintf("SARIMA(%d,%d,%d)(%d,%d,%d,%d)", o.P, o.D, o.Q, so.P, so.D, so.Q, so.Period)
}

// Coefficients are the fitted lag polynomial coefficients.
type Coefficients struct {
	AR         []float64
	MA         []float64
	SeasonalAR []float64
	SeasonalMA []float64
}

// Model is a fitted seasonal ARIMA model.
type Model struct {
	Spec         ModelSpec
	Coefficients Coefficients
	// Sigma2 is the mean squared one-step residual.
	Sigma2 float64
	// Evaluations is the number of objective evaluations the optimizer used.
	Evaluations int

	stages    []stage
	w         []float64
	residuals []float64
	arPoly    []float64
	maPoly    []float64
}

// stage is one differencing step: its input series and lag.
type stage struct {
	lag   int
	input []float64
}

// Fit estimates the model on y by conditional sum of squares. Pre-sample values
// and shocks are taken as zero. Coefficients are mapped through tanh, so each
// lies in (-1, 1); stationarity and invertibility are not otherwise enforced.
func Fit(y []float64, spec ModelSpec, opts FitOptions) (*Model, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(y) <= spec.DifferencingLoss() {
		return nil, fmt.Errorf("%w: %d observations for %s", ErrSeriesTooShort, len(y), spec)
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite observation at %d", i)
		}
	}

	w, stages := differenceAll(y, spec)
	m := &Model{Spec: spec, stages: stages, w: w}

	k := spec.numParams()
	params := make([]float64, k)
	if k > 0 {
		x, evals, err := minimize(w, spec, k, opts)
		if err != nil {
			return nil, err
		}
		for i, v := range x {
			params[i] = math.Tanh(v)
		}
		m.Evaluations = evals
	}

	m.Coefficients = unpack(spec, params)
	m.arPoly, m.maPoly = polynomials(spec, m.Coefficients)
	m.residuals = residuals(w, m.arPoly, m.maPoly)
	m.Sigma2 = floats.Dot(m.residuals, m.residuals) / float64(len(w))

	return m, nil
}

func minimize(w []float64, spec ModelSpec, k int, opts FitOptions) ([]float64, int, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			params := make([]float64, len(x))
			for i, v := range x {
				params[i] = math.Tanh(v)
			}
			ar, ma := polynomials(spec, unpack(spec, params))
			e := residuals(w, ar, ma)
			ss := floats.Dot(e, e)
			if math.IsNaN(ss) || math.IsInf(ss, 0) {
				return penalty
			}
			return ss
		},
	}

	settings := &optimize.Settings{FuncEvaluations: opts.MaxEvaluations}
	res, err := optimize.Minimize(problem, make([]float64, k), settings, &optimize.NelderMead{})
	if res == nil {
		return nil, 0, fmt.Errorf("optimize: %w", err)
	}
	if err != nil && !budgetExhausted(res.Status) {
		return nil, res.FuncEvaluations, fmt.Errorf("optimize: %w", err)
	}
	for _, v := range res.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, res.FuncEvaluations, errors.New("optimize: non-finite parameters")
		}
	}
	return res.X, res.FuncEvaluations, nil
}

// budgetExhausted reports statuses where the best point found so far is still usable.
func budgetExhausted(s optimize.Status) bool {
	switch s {
	case optimize.FunctionEvaluationLimit, optimize.IterationLimit, optimize.RuntimeLimit:
		return true
	}
	return false
}

// Forecast returns h point forecasts on the original scale.
func (m *Model) Forecast(h int) []float64 {
	if h <= 0 {
		return nil
	}
	n := len(m.w)
	w := make([]float64, n+h)
	copy(w, m.w)
	e := make([]float64, n+h)
	copy(e, m.residuals)

	for t := n; t < n+h; t++ {
		var v float64
		for k := 1; k < len(m.arPoly) && k <= t; k++ {
			v -= m.arPoly[k] * w[t-k]
		}
		for k := 1; k < len(m.maPoly) && k <= t; k++ {
			v += m.maPoly[k] * e[t-k]
		}
		w[t] = v
	}

	return integrate(m.stages, w[n:])
}

// Residuals returns a copy of the in-sample one-step residuals.
func (m *Model) Residuals() []float64 {
	out := make([]float64, len(m.residuals))
	copy(out, m.residuals)
	return out
}

func unpack(spec ModelSpec, params []float64) Coefficients {
	var c Coefficients
	i := 0
	take := func(n int) []float64 {
		out := params[i : i+n]
		i += n
		return out
	}
	c.AR = take(spec.Order.P)
	c.MA = take(spec.Order.Q)
	if spec.IsSeasonal() {
		c.SeasonalAR = take(spec.Seasonal.P)
		c.SeasonalMA = take(spec.Seasonal.Q)
	}
	return c
}

// polynomials expands phi(B)Phi(B^s) and theta(B)Theta(B^s) into coefficient
// slices indexed by lag, with a leading 1.
func polynomials(spec ModelSpec, c Coefficients) (ar, ma []float64) {
	ar = lagPolynomial(c.AR, 1, -1)
	ma = lagPolynomial(c.MA, 1, 1)
	if spec.IsSeasonal() {
		s := spec.Seasonal.Period
		ar = polymul(ar, lagPolynomial(c.SeasonalAR, s, -1))
		ma = polymul(ma, lagPolynomial(c.SeasonalMA, s, 1))
	}
	return ar, ma
}

// lagPolynomial builds 1 + sign*(c1 B^step + c2 B^2step + ...).
func lagPolynomial(coef []float64, step int, sign float64) []float64 {
	p := make([]float64, len(coef)*step+1)
	p[0] = 1
	for i, c := range coef {
		p[(i+1)*step] = sign * c
	}
	return p
}

func polymul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		if x == 0 {
			continue
		}
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// residuals solves ar(B) w_t = ma(B) e_t for e with zero pre-sample values.
func residuals(w, ar, ma []float64) []float64 {
	e := make([]float64, len(w))
	for t := range w {
		v := w[t]
		for k := 1; k < len(ar) && k <= t; k++ {
			v += ar[k] * w[t-k]
		}
		for k := 1; k < len(ma) && k <= t; k++ {
			v -= ma[k] * e[t-k]
		}
		e[t] = v
	}
	return e
}

func difference(y []float64, lag int) []float64 {
	if len(y) <= lag {
		return nil
	}
	out := make([]float64, len(y)-lag)
	for i := range out {
		out[i] = y[i+lag] - y[i]
	}
	return out
}

// differenceAll applies (1-B)^d then (1-B^s)^D and records each step.
func differenceAll(y []float64, spec ModelSpec) ([]float64, []stage) {
	var stages []stage
	cur := y
	apply := func(lag, times int) {
		for range times {
			stages = append(stages, stage{lag: lag, input: cur})
			cur = difference(cur, lag)
		}
	}
	apply(1, spec.Order.D)
	if spec.IsSeasonal() {
		apply(spec.Seasonal.Period, spec.Seasonal.D)
	}
	return cur, stages
}

// integrate undoes differenceAll for forecasts f of the fully differenced series.
func integrate(stages []stage, f []float64) []float64 {
	out := make([]float64, len(f))
	copy(out, f)
	for i := len(stages) - 1; i >= 0; i-- {
		st := stages[i]
		n := len(st.input)
		ext := make([]float64, n+len(out))
		copy(ext, st.input)
		for h, v := range out {
			ext[n+h] = v + ext[n+h-st.lag]
		}
		out = ext[n:]
	}
	return out
}
