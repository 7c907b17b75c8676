package prediction

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/StockPredictor/models"
)

// Stage is the position of a Pipeline in its one-way lifecycle
type Stage int

const (
	StageIdle Stage = iota
	StageWindowed
	StageScaled
	StageTrained
	StagePredicting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageWindowed:
		return "windowed"
	case StageScaled:
		return "scaled"
	case StageTrained:
		return "trained"
	case StagePredicting:
		return "predicting"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

var validate = validator.New()

// PrepareRequest fills unset fields with defaults and validates the result
func PrepareRequest(req models.ForecastRequest) (models.ForecastRequest, error) {
	if err := defaults.Set(&req); err != nil {
		return req, fmt.Errorf("applying forecast defaults: %w", err)
	}
	if err := validate.Struct(req); err != nil {
		return req, fmt.Errorf("invalid forecast request: %w", err)
	}
	return req, nil
}

// Pipeline runs one forecast: window the closes, scale them, train a fresh
// network and roll it forward. A Pipeline owns its scaler and network and
// is used for a single run.
type Pipeline struct {
	req    models.ForecastRequest
	seed   int64
	rng    *rand.Rand
	stage  Stage
	logger zerolog.Logger

	inputs  [][]float64
	targets []float64
	scaler  MinMaxScaler
	network *Network
	history []float64
}

// NewPipeline validates the request and seeds the run
func NewPipeline(req models.ForecastRequest) (*Pipeline, error) {
	req, err := PrepareRequest(req)
	if err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	return &Pipeline{
		req:    req,
		seed:   seed,
		rng:    rand.New(rand.NewSource(seed)),
		stage:  StageIdle,
		logger: log.With().Str("component", "forecast_pipeline").Int64("seed", seed).Logger(),
	}, nil
}

// Stage returns the current lifecycle stage
func (p *Pipeline) Stage() Stage {
	return p.stage
}

// LossHistory returns the training loss per epoch
func (p *Pipeline) LossHistory() []float64 {
	return p.history
}

func (p *Pipeline) advance(next Stage) {
	p.logger.Debug().Str("from", p.stage.String()).Str("to", next.String()).Msg("Forecast stage")
	p.stage = next
}

// Run produces Horizon future closes from the given close prices.
// It fails before any training when there are not more than
// SequenceLength prices.
func (p *Pipeline) Run(closes []float64) (*models.Forecast, error) {
	if p.stage != StageIdle {
		return nil, fmt.Errorf("pipeline already used (stage %s)", p.stage)
	}
	if len(closes) == 0 {
		return nil, models.ErrEmptySeries
	}

	inputs, targets, err := BuildWindows(closes, p.req.SequenceLength)
	if err != nil {
		return nil, err
	}
	p.advance(StageWindowed)

	// Fitted on the whole series, so the training windows see its full range
	if err := p.scaler.Fit(closes); err != nil {
		return nil, err
	}
	p.inputs = make([][]float64, len(inputs))
	for i, window := range inputs {
		if p.inputs[i], err = p.scaler.Transform(window); err != nil {
			return nil, err
		}
	}
	if p.targets, err = p.scaler.Transform(targets); err != nil {
		return nil, err
	}
	p.advance(StageScaled)

	p.network, err = NewNetwork(p.req.HiddenUnits, p.req.LearningRate, p.rng)
	if err != nil {
		return nil, err
	}
	p.history, err = p.network.Fit(p.inputs, p.targets, p.req.Epochs, p.req.BatchSize, p.rng, p.logger)
	if err != nil {
		return nil, fmt.Errorf("training forecast model: %w", err)
	}
	p.advance(StageTrained)

	p.advance(StagePredicting)
	scaledCloses, err := p.scaler.Transform(closes)
	if err != nil {
		return nil, err
	}
	scaled := p.predictAhead(scaledCloses[len(scaledCloses)-p.req.SequenceLength:])

	values, err := p.scaler.InverseTransform(scaled)
	if err != nil {
		return nil, err
	}
	p.advance(StageDone)

	forecast := &models.Forecast{
		RunID:        uuid.NewString(),
		Values:       values,
		Seed:         p.seed,
		TrainingLoss: p.history[len(p.history)-1],
	}

	p.logger.Info().
		Str("run_id", forecast.RunID).
		Int("samples", len(p.inputs)).
		Int("horizon", p.req.Horizon).
		Float64("loss", forecast.TrainingLoss).
		Msg("Forecast completed")

	return forecast, nil
}

// predictAhead feeds each prediction back into the window, Horizon times
func (p *Pipeline) predictAhead(last []float64) []float64 {
	window := make([]float64, len(last))
	copy(window, last)

	out := make([]float64, 0, p.req.Horizon)
	for step := 0; step < p.req.Horizon; step++ {
		next := p.network.Predict(window)
		out = append(out, next)
		window = append(window[1:], next)
	}
	return out
}

// Forecast runs a fresh pipeline over closes
func Forecast(closes []float64, req models.ForecastRequest) (*models.Forecast, error) {
	p, err := NewPipeline(req)
	if err != nil {
		return nil, err
	}
	return p.Run(closes)
}
