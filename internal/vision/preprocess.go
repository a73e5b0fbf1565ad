package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
)

type Layout int

const (
	LayoutNHWC Layout = iota
	LayoutNCHW
)

// InputSpec describes the single-image tensor a model expects.
type InputSpec struct {
	Width  int
	Height int
	Layout Layout
}

// DefaultInputSpec matches a Keras model exported with a 224x224x3 input.
var DefaultInputSpec = InputSpec{Width: 224, Height: 224, Layout: LayoutNHWC}

func (s InputSpec) Size() int {
	return 3 * s.Width * s.Height
}

// SpecFromShape infers the layout from a rank-4 input shape such as
// [-1,224,224,3] or [1,3,224,224].
func SpecFromShape(shape []int64) (InputSpec, error) {
	if len(shape) != 4 {
		return InputSpec{}, fmt.Errorf("expected rank-4 input, got shape %v", shape)
	}
	switch {
	case shape[3] == 3 && shape[1] > 0 && shape[2] > 0:
		return InputSpec{Height: int(shape[1]), Width: int(shape[2]), Layout: LayoutNHWC}, nil
	case shape[1] == 3 && shape[2] > 0 && shape[3] > 0:
		return InputSpec{Height: int(shape[2]), Width: int(shape[3]), Layout: LayoutNCHW}, nil
	default:
		return InputSpec{}, fmt.Errorf("unsupported input shape %v", shape)
	}
}

// Decode reads a png, jpeg or gif image (first frame for gif).
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Preprocess resizes img to the spec's dimensions and returns RGB values in
// [0,1] for a batch of one, laid out as the spec says. Alpha is dropped
// before resizing, so transparent pixels keep their colour channels.
func Preprocess(img image.Image, spec InputSpec) []float32 {
	w, h := spec.Width, spec.Height
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	src := dropAlpha(img)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := make([]float32, spec.Size())
	plane := w * h
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := dst.RGBAAt(x, y)
			r, g, b := float32(c.R)/255.0, float32(c.G)/255.0, float32(c.B)/255.0
			idx := y*w + x
			if spec.Layout == LayoutNCHW {
				out[idx] = r
				out[plane+idx] = g
				out[2*plane+idx] = b
				continue
			}
			out[idx*3] = r
			out[idx*3+1] = g
			out[idx*3+2] = b
		}
	}
	return out
}

// dropAlpha returns an opaque copy of img holding its straight (not
// premultiplied) RGB values. Opaque images are returned as is.
func dropAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}
