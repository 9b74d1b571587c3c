package transforms

import (
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
)

// Chain runs transforms in sequence through temporary images. Empty
// transforms are skipped.
type Chain []Transform

var _ Transform = Chain(nil)

// NewChain drops nil and empty transforms
func NewChain(ts ...Transform) Chain {
	var c Chain
	for _, t := range ts {
		if t != nil && !t.IsEmpty() {
			c = append(c, t)
		}
	}
	return c
}

func (c Chain) IsEmpty() bool { return len(c) == 0 }

// AllocateOutputImage allocates the output of each step in turn and returns
// the last one. An empty chain clones the input format.
func (c Chain) AllocateOutputImage(in *pixel.Image, width, height uint32) (*pixel.Image, error) {
	if c.IsEmpty() {
		return pixel.NewImage(width, height, in.Depth(), in.ColorSpace(), in.HighBit())
	}
	cur := in
	for _, t := range c {
		next, err := t.AllocateOutputImage(cur, width, height)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func (c Chain) RunTransform(in *pixel.Image, inX, inY, width, height uint32, out *pixel.Image, outX, outY uint32) error {
	if c.IsEmpty() {
		return HighBit{}.RunTransform(in, inX, inY, width, height, out, outX, outY)
	}
	if len(c) == 1 {
		return c[0].RunTransform(in, inX, inY, width, height, out, outX, outY)
	}
	if err := checkAreas(in, inX, inY, width, height, out, outX, outY); err != nil {
		return err
	}
	cur, x, y := in, inX, inY
	for _, t := range c[:len(c)-1] {
		tmp, err := t.AllocateOutputImage(cur, width, height)
		if err != nil {
			return err
		}
		if err := t.RunTransform(cur, x, y, width, height, tmp, 0, 0); err != nil {
			return err
		}
		cur, x, y = tmp, 0, 0
	}
	return c[len(c)-1].RunTransform(cur, x, y, width, height, out, outX, outY)
}
