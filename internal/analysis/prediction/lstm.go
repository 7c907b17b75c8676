package prediction

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// param is a trainable tensor stored flat, with its gradient and Adam moments
type param struct {
	value []float64
	grad  []float64
	m     []float64
	v     []float64
}

func newParam(size int) *param {
	return &param{
		value: make([]float64, size),
		grad:  make([]float64, size),
		m:     make([]float64, size),
		v:     make([]float64, size),
	}
}

// glorotUniform fills values from U(-limit, limit), limit = sqrt(6/(fanIn+fanOut))
func glorotUniform(values []float64, fanIn, fanOut int, rng *rand.Rand) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range values {
		values[i] = (rng.Float64()*2 - 1) * limit
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// lstmLayer is a single LSTM layer. Gate rows are stacked in the order
// input, forget, cell candidate, output; each row of weights covers the
// concatenation of the step input and the previous hidden state.
type lstmLayer struct {
	inputSize int
	units     int
	weights   *param // 4*units rows x (inputSize+units) columns
	bias      *param // 4*units
}

func newLSTMLayer(inputSize, units int, rng *rand.Rand) *lstmLayer {
	cols := inputSize + units
	l := &lstmLayer{
		inputSize: inputSize,
		units:     units,
		weights:   newParam(4 * units * cols),
		bias:      newParam(4 * units),
	}

	for r := 0; r < 4*units; r++ {
		row := l.row(l.weights.value, r)
		glorotUniform(row[:inputSize], inputSize, 4*units, rng)
		glorotUniform(row[inputSize:], units, 4*units, rng)
	}
	for j := 0; j < units; j++ {
		l.bias.value[units+j] = 1.0
	}

	return l
}

func (l *lstmLayer) row(flat []float64, r int) []float64 {
	cols := l.inputSize + l.units
	return flat[r*cols : (r+1)*cols]
}

// lstmStep caches what the backward pass needs for one time step
type lstmStep struct {
	concat []float64
	i, f   []float64
	g, o   []float64
	cPrev  []float64
	c      []float64
	tanhC  []float64
	h      []float64
}

// forward runs the layer over a sequence and returns every step
func (l *lstmLayer) forward(xs [][]float64) []lstmStep {
	h := make([]float64, l.units)
	c := make([]float64, l.units)
	steps := make([]lstmStep, len(xs))
	z := make([]float64, 4*l.units)

	for t, x := range xs {
		concat := make([]float64, 0, l.inputSize+l.units)
		concat = append(concat, x...)
		concat = append(concat, h...)

		for r := range z {
			z[r] = floats.Dot(l.row(l.weights.value, r), concat) + l.bias.value[r]
		}

		s := lstmStep{
			concat: concat,
			i:      make([]float64, l.units),
			f:      make([]float64, l.units),
			g:      make([]float64, l.units),
			o:      make([]float64, l.units),
			cPrev:  c,
			c:      make([]float64, l.units),
			tanhC:  make([]float64, l.units),
			h:      make([]float64, l.units),
		}
		u := l.units
		for j := 0; j < u; j++ {
			s.i[j] = sigmoid(z[j])
			s.f[j] = sigmoid(z[u+j])
			s.g[j] = math.Tanh(z[2*u+j])
			s.o[j] = sigmoid(z[3*u+j])
			s.c[j] = s.f[j]*c[j] + s.i[j]*s.g[j]
			s.tanhC[j] = math.Tanh(s.c[j])
			s.h[j] = s.o[j] * s.tanhC[j]
		}

		steps[t] = s
		h, c = s.h, s.c
	}

	return steps
}

// backward accumulates parameter gradients given the loss gradient with
// respect to each step's hidden output, and returns the gradient with
// respect to each step's input
func (l *lstmLayer) backward(steps []lstmStep, dhOut [][]float64) [][]float64 {
	u := l.units
	dhNext := make([]float64, u)
	dcNext := make([]float64, u)
	dz := make([]float64, 4*u)
	dxs := make([][]float64, len(steps))

	for t := len(steps) - 1; t >= 0; t-- {
		s := steps[t]
		for j := 0; j < u; j++ {
			dh := dhNext[j]
			if dhOut[t] != nil {
				dh += dhOut[t][j]
			}

			do := dh * s.tanhC[j]
			dc := dcNext[j] + dh*s.o[j]*(1-s.tanhC[j]*s.tanhC[j])
			di := dc * s.g[j]
			dg := dc * s.i[j]
			df := dc * s.cPrev[j]

			dz[j] = di * s.i[j] * (1 - s.i[j])
			dz[u+j] = df * s.f[j] * (1 - s.f[j])
			dz[2*u+j] = dg * (1 - s.g[j]*s.g[j])
			dz[3*u+j] = do * s.o[j] * (1 - s.o[j])

			dcNext[j] = dc * s.f[j]
		}

		dconcat := make([]float64, l.inputSize+u)
		for r, d := range dz {
			if d == 0 {
				continue
			}
			floats.AddScaled(l.row(l.weights.grad, r), d, s.concat)
			floats.AddScaled(dconcat, d, l.row(l.weights.value, r))
		}
		floats.Add(l.bias.grad, dz)

		dxs[t] = dconcat[:l.inputSize]
		dhNext = dconcat[l.inputSize:]
	}

	return dxs
}

func (l *lstmLayer) params() []*param {
	return []*param{l.weights, l.bias}
}
