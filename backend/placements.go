package backend

import (
	"image"

	"github.com/tsawler/attachcore/contentstream"
	"github.com/tsawler/attachcore/core"
	"github.com/tsawler/attachcore/model"
)

// imagePlacements walks this page's content stream tracking the CTM
// through q/Q/cm exactly as graphicsstate.GraphicsState does, and records
// the placement rect of every "Do" XObject invocation as the CTM applied
// to the PDF unit square. Tabula's text/graphicsstate extractors don't
// track Do, so this is backend's own small CTM walk, grounded on the same
// push/pop/Multiply idiom as graphicsstate.GraphicsState.Transform.
func (p *Page) imagePlacements() (map[string]model.Rect, error) {
	data, err := p.contentBytes()
	if err != nil {
		return nil, err
	}
	ops, err := contentstream.NewParser(data).Parse()
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Rect)
	ctm := model.Identity()
	var stack []model.Matrix
	for _, op := range ops {
		switch op.Operator {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if n := len(stack); n > 0 {
				ctm = stack[n-1]
				stack = stack[:n-1]
			}
		case "cm":
			m, ok := operandsToMatrix(op.Operands)
			if ok {
				ctm = ctm.Multiply(m)
			}
		case "Do":
			if len(op.Operands) == 0 {
				continue
			}
			name, ok := op.Operands[len(op.Operands)-1].(core.Name)
			if !ok {
				continue
			}
			corners := []model.Point{
				ctm.Transform(model.Point{X: 0, Y: 0}),
				ctm.Transform(model.Point{X: 1, Y: 0}),
				ctm.Transform(model.Point{X: 0, Y: 1}),
				ctm.Transform(model.Point{X: 1, Y: 1}),
			}
			bb := model.NewBBoxFromPoints(corners[0], corners[1])
			for _, c := range corners[2:] {
				bb = bb.Union(model.NewBBoxFromPoints(c, c))
			}
			out[string(name)] = model.BBoxToRect(bb, p.height)
		}
	}
	return out, nil
}

func operandsToMatrix(operands []core.Object) (model.Matrix, bool) {
	if len(operands) < 6 {
		return model.Matrix{}, false
	}
	var m model.Matrix
	for i := 0; i < 6; i++ {
		v, ok := numericValue(operands[i])
		if !ok {
			return model.Matrix{}, false
		}
		m[i] = v
	}
	return m, true
}

func numericValue(obj core.Object) (float64, bool) {
	switch v := obj.(type) {
	case core.Int:
		return float64(v), true
	case core.Real:
		return float64(v), true
	default:
		return 0, false
	}
}

// imageToRGBA flattens a decoded image.Image into a tightly packed RGBA
// pixel buffer, the representation [model.ImageRect.Pix] carries.
func imageToRGBA(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, a := img.At(x, y).RGBA()
			out[i+0] = uint8(r >> 8)
			out[i+1] = uint8(g >> 8)
			out[i+2] = uint8(bb >> 8)
			out[i+3] = uint8(a >> 8)
			i += 4
		}
	}
	return out
}
