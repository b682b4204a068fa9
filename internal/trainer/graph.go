package trainer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/model"
)

// headGraph trains a two-logit head on a gorgonia expression graph.
//
// The parameters are the packed head: an (in+1) x 2 matrix whose last row is
// the bias, multiplied by embeddings with a trailing 1 column. For two classes
// the softmax cross-entropy of row i is softplus(s_i * (l1 - l0)) with
// s_i = -1 for label 1 and +1 for label 0. Rows are weighted by 1/n so the
// cost is the batch mean; padding rows get weight 0.
type headGraph struct {
	head  *model.Head
	batch int
	in    int

	g      *gorgonia.ExprGraph
	x      *gorgonia.Node
	sign   *gorgonia.Node
	weight *gorgonia.Node
	params *gorgonia.Node
	cost   *gorgonia.Node

	vm     gorgonia.VM
	solver gorgonia.Solver
}

func newHeadGraph(head *model.Head, batch int, lr float64) (*headGraph, error) {
	if head.Classes() != 2 {
		return nil, fmt.Errorf("training graph needs a 2-logit head, got %d logits", head.Classes())
	}
	if batch < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batch)
	}

	hg := &headGraph{head: head, batch: batch, in: head.In(), g: gorgonia.NewGraph()}
	cols := hg.in + 1

	hg.x = gorgonia.NewMatrix(hg.g, tensor.Float64, gorgonia.WithShape(batch, cols), gorgonia.WithName("x"))
	hg.sign = gorgonia.NewVector(hg.g, tensor.Float64, gorgonia.WithShape(batch), gorgonia.WithName("sign"))
	hg.weight = gorgonia.NewVector(hg.g, tensor.Float64, gorgonia.WithShape(batch), gorgonia.WithName("weight"))
	hg.params = gorgonia.NewMatrix(hg.g, tensor.Float64,
		gorgonia.WithShape(cols, 2),
		gorgonia.WithName("params"),
		gorgonia.WithValue(tensor.New(tensor.WithShape(cols, 2), tensor.WithBacking(head.Packed()))))
	contrast := gorgonia.NewVector(hg.g, tensor.Float64,
		gorgonia.WithShape(2),
		gorgonia.WithName("contrast"),
		gorgonia.WithValue(tensor.New(tensor.WithShape(2), tensor.WithBacking([]float64{-1, 1}))))

	var err error
	if hg.cost, err = crossEntropyCost(hg.x, hg.params, contrast, hg.sign, hg.weight); err != nil {
		return nil, err
	}
	if _, err = gorgonia.Grad(hg.cost, hg.params); err != nil {
		return nil, fmt.Errorf("differentiate head cost: %w", err)
	}

	hg.vm = gorgonia.NewTapeMachine(hg.g, gorgonia.BindDualValues(hg.params))
	hg.solver = gorgonia.NewAdamSolver(gorgonia.WithLearnRate(lr))
	return hg, nil
}

// crossEntropyCost builds sum_i w_i * softplus(s_i * ([x_i 1]·P·c)).
func crossEntropyCost(x, params, contrast, sign, weight *gorgonia.Node) (*gorgonia.Node, error) {
	logits, err := gorgonia.Mul(x, params)
	if err != nil {
		return nil, fmt.Errorf("logits: %w", err)
	}
	margin, err := gorgonia.Mul(logits, contrast)
	if err != nil {
		return nil, fmt.Errorf("margin: %w", err)
	}
	signed, err := gorgonia.HadamardProd(sign, margin)
	if err != nil {
		return nil, fmt.Errorf("signed margin: %w", err)
	}
	nll, err := gorgonia.Softplus(signed)
	if err != nil {
		return nil, fmt.Errorf("softplus: %w", err)
	}
	weighted, err := gorgonia.HadamardProd(weight, nll)
	if err != nil {
		return nil, fmt.Errorf("weighting: %w", err)
	}
	return gorgonia.Sum(weighted)
}

// step runs one Adam update on the embeddings x and their labels, writes the
// new parameters back into the head and returns the batch loss before the update.
func (hg *headGraph) step(x *mat.Dense, labels []int) (float64, error) {
	n, in := x.Dims()
	if n != len(labels) {
		return 0, fmt.Errorf("%d embedding rows for %d labels", n, len(labels))
	}
	if n == 0 || n > hg.batch {
		return 0, fmt.Errorf("batch of %d rows does not fit the graph batch of %d", n, hg.batch)
	}
	if in != hg.in {
		return 0, fmt.Errorf("head expects %d features, got %d", hg.in, in)
	}

	cols := hg.in + 1
	xs := make([]float64, hg.batch*cols)
	signs := make([]float64, hg.batch)
	weights := make([]float64, hg.batch)
	for i, y := range labels {
		switch y {
		case 0:
			signs[i] = 1
		case 1:
			signs[i] = -1
		default:
			return 0, fmt.Errorf("label %d out of range for 2 classes", y)
		}
		weights[i] = 1 / float64(n)
		copy(xs[i*cols:], x.RawRowView(i))
		xs[i*cols+hg.in] = 1
	}

	if err := gorgonia.Let(hg.x, tensor.New(tensor.WithShape(hg.batch, cols), tensor.WithBacking(xs))); err != nil {
		return 0, err
	}
	if err := gorgonia.Let(hg.sign, tensor.New(tensor.WithShape(hg.batch), tensor.WithBacking(signs))); err != nil {
		return 0, err
	}
	if err := gorgonia.Let(hg.weight, tensor.New(tensor.WithShape(hg.batch), tensor.WithBacking(weights))); err != nil {
		return 0, err
	}

	defer hg.vm.Reset()
	if err := hg.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("run head graph: %w", err)
	}
	loss, ok := hg.cost.Value().Data().(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected cost value %v", hg.cost.Value())
	}

	if err := hg.solver.Step(gorgonia.NodesToValueGrads(gorgonia.Nodes{hg.params})); err != nil {
		return 0, fmt.Errorf("adam step: %w", err)
	}
	packed, ok := hg.params.Value().Data().([]float64)
	if !ok {
		return 0, fmt.Errorf("unexpected parameter storage %T", hg.params.Value().Data())
	}
	return loss, hg.head.Unpack(packed)
}

func (hg *headGraph) Close() error {
	return hg.vm.Close()
}
