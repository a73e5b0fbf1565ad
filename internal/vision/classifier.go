package vision

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrNoLabels       = errors.New("vision: label list is empty")
	ErrOutputMismatch = errors.New("vision: model output does not match label count")
	ErrThreshold      = errors.New("vision: confidence threshold must be within (0,1]")
)

// Model is a loaded classifier that maps one preprocessed image to a
// probability vector. Implementations must be safe for concurrent use.
type Model interface {
	Input() InputSpec
	Infer(input []float32) ([]float32, error)
}

// Prediction is the outcome of one classification. Label is
// UnrecognizedLabel when Recognized is false.
type Prediction struct {
	Label      string  `json:"label"`
	Index      int     `json:"index"`
	Confidence float32 `json:"confidence"`
	Recognized bool    `json:"recognized"`
}

// Classifier applies the label list and confidence threshold to a Model.
type Classifier struct {
	model     Model
	labels    []string
	threshold float32
}

func NewClassifier(model Model, labels []string, threshold float32) (*Classifier, error) {
	if len(labels) == 0 {
		return nil, ErrNoLabels
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrThreshold, threshold)
	}
	return &Classifier{
		model:     model,
		labels:    labels,
		threshold: threshold,
	}, nil
}

// Classify decodes an image, normalizes it for the model and runs a single
// inference.
func (c *Classifier) Classify(r io.Reader) (Prediction, error) {
	img, err := Decode(r)
	if err != nil {
		return Prediction{}, err
	}

	probs, err := c.model.Infer(Preprocess(img, c.model.Input()))
	if err != nil {
		return Prediction{}, fmt.Errorf("model inference: %w", err)
	}
	return c.Predict(probs)
}

// Predict picks the arg-max class; anything below the threshold is reported
// as UnrecognizedLabel whatever the top class was.
func (c *Classifier) Predict(probs []float32) (Prediction, error) {
	if len(probs) != len(c.labels) {
		return Prediction{}, fmt.Errorf("%w: %d outputs, %d labels", ErrOutputMismatch, len(probs), len(c.labels))
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	pred := Prediction{
		Label:      c.labels[best],
		Index:      best,
		Confidence: probs[best],
		Recognized: probs[best] >= c.threshold,
	}
	if !pred.Recognized {
		pred.Label = UnrecognizedLabel
	}
	return pred, nil
}
