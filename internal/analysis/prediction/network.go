package prediction

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Adam settings
const (
	adamBeta1   = 0.9
	adamBeta2   = 0.999
	adamEpsilon = 1e-7
)

// Network is a stack of LSTM layers followed by one linear output unit.
// It maps a window of scaled prices to the next scaled price.
type Network struct {
	layers       []*lstmLayer
	denseWeights *param
	denseBias    *param

	learningRate float64
	step         int
}

// NewNetwork builds a network with one LSTM layer per entry of hiddenUnits
func NewNetwork(hiddenUnits []int, learningRate float64, rng *rand.Rand) (*Network, error) {
	if len(hiddenUnits) == 0 {
		return nil, errors.New("network needs at least one recurrent layer")
	}

	n := &Network{learningRate: learningRate}
	inputSize := 1
	for _, units := range hiddenUnits {
		if units <= 0 {
			return nil, fmt.Errorf("invalid layer width %d", units)
		}
		n.layers = append(n.layers, newLSTMLayer(inputSize, units, rng))
		inputSize = units
	}

	n.denseWeights = newParam(inputSize)
	n.denseBias = newParam(1)
	glorotUniform(n.denseWeights.value, inputSize, 1, rng)

	return n, nil
}

func (n *Network) params() []*param {
	var ps []*param
	for _, l := range n.layers {
		ps = append(ps, l.params()...)
	}
	return append(ps, n.denseWeights, n.denseBias)
}

func toSequence(window []float64) [][]float64 {
	xs := make([][]float64, len(window))
	for t, v := range window {
		xs[t] = []float64{v}
	}
	return xs
}

// forward returns the per-layer step caches and the scalar output
func (n *Network) forward(window []float64) ([][]lstmStep, float64) {
	xs := toSequence(window)
	caches := make([][]lstmStep, len(n.layers))
	for li, layer := range n.layers {
		steps := layer.forward(xs)
		caches[li] = steps
		xs = make([][]float64, len(steps))
		for t := range steps {
			xs[t] = steps[t].h
		}
	}

	last := xs[len(xs)-1]
	out := floats.Dot(n.denseWeights.value, last) + n.denseBias.value[0]
	return caches, out
}

// backward accumulates gradients for one sample given dLoss/dOutput
func (n *Network) backward(caches [][]lstmStep, dOut float64) {
	top := caches[len(caches)-1]
	last := top[len(top)-1].h

	floats.AddScaled(n.denseWeights.grad, dOut, last)
	n.denseBias.grad[0] += dOut

	// Only the last hidden state of the top layer feeds the output
	dh := make([][]float64, len(top))
	dLast := make([]float64, len(last))
	floats.AddScaled(dLast, dOut, n.denseWeights.value)
	dh[len(dh)-1] = dLast

	for li := len(n.layers) - 1; li >= 0; li-- {
		dh = n.layers[li].backward(caches[li], dh)
	}
}

// Predict returns the network output for one scaled window
func (n *Network) Predict(window []float64) float64 {
	_, out := n.forward(window)
	return out
}

func (n *Network) zeroGrad() {
	for _, p := range n.params() {
		for i := range p.grad {
			p.grad[i] = 0
		}
	}
}

// applyAdam performs one Adam update with the accumulated gradients
func (n *Network) applyAdam() {
	n.step++
	correction1 := 1 - math.Pow(adamBeta1, float64(n.step))
	correction2 := 1 - math.Pow(adamBeta2, float64(n.step))

	for _, p := range n.params() {
		for i, g := range p.grad {
			p.m[i] = adamBeta1*p.m[i] + (1-adamBeta1)*g
			p.v[i] = adamBeta2*p.v[i] + (1-adamBeta2)*g*g
			mHat := p.m[i] / correction1
			vHat := p.v[i] / correction2
			p.value[i] -= n.learningRate * mHat / (math.Sqrt(vHat) + adamEpsilon)
		}
	}
}

// trainBatch runs one optimisation step on a mini-batch and returns its summed squared error
func (n *Network) trainBatch(inputs [][]float64, targets []float64, idx []int) float64 {
	n.zeroGrad()

	var sse float64
	scale := 2.0 / float64(len(idx))
	for _, k := range idx {
		caches, out := n.forward(inputs[k])
		diff := out - targets[k]
		sse += diff * diff
		n.backward(caches, scale*diff)
	}

	n.applyAdam()
	return sse
}

// Fit trains on the samples with mean squared error and returns the loss
// history, one entry per epoch. Sample order is shuffled every epoch.
func (n *Network) Fit(inputs [][]float64, targets []float64, epochs, batchSize int, rng *rand.Rand, logger zerolog.Logger) ([]float64, error) {
	if len(inputs) == 0 || len(inputs) != len(targets) {
		return nil, fmt.Errorf("invalid training set: %d inputs, %d targets", len(inputs), len(targets))
	}
	if epochs <= 0 || batchSize <= 0 {
		return nil, fmt.Errorf("invalid training schedule: epochs=%d batch=%d", epochs, batchSize)
	}

	history := make([]float64, 0, epochs)
	for epoch := 1; epoch <= epochs; epoch++ {
		order := rng.Perm(len(inputs))

		var sse float64
		for start := 0; start < len(order); start += batchSize {
			end := start + batchSize
			if end > len(order) {
				end = len(order)
			}
			sse += n.trainBatch(inputs, targets, order[start:end])
		}

		loss := sse / float64(len(inputs))
		if math.IsNaN(loss) || math.IsInf(loss, 0) {
			return history, fmt.Errorf("training diverged at epoch %d", epoch)
		}
		history = append(history, loss)

		logger.Debug().
			Int("epoch", epoch).
			Int("epochs", epochs).
			Float64("loss", loss).
			Msg("Epoch finished")
	}

	return history, nil
}
