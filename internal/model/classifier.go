package model

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/dataset"
)

// Classifier is a frozen backbone followed by a trainable head.
type Classifier struct {
	Backbone Backbone
	Head     *Head
}

// NewClassifier attaches a freshly initialised head with numClasses outputs.
func NewClassifier(backbone Backbone, numClasses int, seed uint64) *Classifier {
	return &Classifier{
		Backbone: backbone,
		Head:     NewHead(backbone.FeatureDim(), numClasses, seed),
	}
}

// Embed runs only the backbone.
func (c *Classifier) Embed(ctx context.Context, batch *dataset.Batch) (*mat.Dense, error) {
	return c.Backbone.Embed(ctx, batch)
}

// Forward returns batch x classes logits.
func (c *Classifier) Forward(ctx context.Context, batch *dataset.Batch) (*mat.Dense, error) {
	x, err := c.Backbone.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	return c.Head.Forward(x)
}

// Clone copies the head; the frozen backbone is shared.
func (c *Classifier) Clone() *Classifier {
	return &Classifier{Backbone: c.Backbone, Head: c.Head.Clone()}
}

// Close releases the backbone.
func (c *Classifier) Close() error {
	return c.Backbone.Close()
}
