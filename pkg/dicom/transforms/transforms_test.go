package transforms

import (
	"testing"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(t *testing.T, depth pixel.Depth, cs string, highBit uint32, values ...int64) *pixel.Image {
	t.Helper()
	img, err := pixel.NewImage(uint32(len(values)), 1, depth, cs, highBit)
	require.NoError(t, err)
	for i, v := range values {
		img.Set(uint32(i), 0, 0, v)
	}
	return img
}

func samples(img *pixel.Image) []int64 {
	out := make([]int64, img.Width())
	for i := range out {
		out[i] = img.At(uint32(i), 0, 0)
	}
	return out
}

func TestVOILinear(t *testing.T) {
	in := row(t, pixel.DepthU8, pixel.Monochrome2, 7, 0, 10, 20, 30, 40, 50, 60)

	out, err := Apply(NewVOILUT(VOIDescription{Center: 0, Width: 50}), in)
	require.NoError(t, err)
	assert.Equal(t, pixel.DepthU8, out.Depth())
	got := samples(out)
	assert.InDelta(t, 130, got[0], 1)
	assert.InDelta(t, 182, got[1], 1)
	assert.InDelta(t, 234, got[2], 1)
	assert.Equal(t, []int64{255, 255, 255, 255}, got[3:])

	out, err = Apply(NewVOILUT(VOIDescription{Center: 15, Width: 1}), in)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 255, 255, 255, 255, 255}, samples(out))

	s16, err := pixel.NewImage(7, 1, pixel.DepthS16, pixel.Monochrome2, 15)
	require.NoError(t, err)
	require.NoError(t, NewVOILUT(VOIDescription{Center: 70, Width: 50}).RunTransform(in, 0, 0, 7, 1, s16, 0, 0))
	got = samples(s16)
	assert.Equal(t, []int64{-32768, -32768, -32768, -32768, -32768}, got[:5])
	assert.InDelta(t, -26080, got[5], 1)
	assert.InDelta(t, -12706, got[6], 1)
}

func TestVOILinearExact(t *testing.T) {
	in := row(t, pixel.DepthU8, pixel.Monochrome2, 7, 0, 10, 20, 30, 40, 50, 60)
	out, err := Apply(NewVOILUT(VOIDescription{Center: 0, Width: 50, Function: VOILinearExact}), in)
	require.NoError(t, err)
	got := samples(out)
	assert.Equal(t, int64(0), got[0])
	assert.InDelta(t, 51, got[1], 1)
	assert.InDelta(t, 102, got[2], 1)
	assert.InDelta(t, 153, got[3], 1)
	assert.InDelta(t, 204, got[4], 1)
	assert.Equal(t, []int64{255, 255}, got[5:])

	s16, err := pixel.NewImage(7, 1, pixel.DepthS16, pixel.Monochrome2, 15)
	require.NoError(t, err)
	require.NoError(t, NewVOILUT(VOIDescription{Center: 70, Width: 50, Function: VOILinearExact}).RunTransform(in, 0, 0, 7, 1, s16, 0, 0))
	for _, v := range samples(s16) {
		assert.Equal(t, int64(-32768), v)
	}
}

func TestVOISigmoid(t *testing.T) {
	in := row(t, pixel.DepthU8, pixel.Monochrome2, 7, 0, 10, 20, 30, 40, 50, 60)
	out, err := Apply(NewVOILUT(VOIDescription{Center: 0, Width: 50, Function: VOISigmoid}), in)
	require.NoError(t, err)
	for i, want := range []int64{127, 175, 212, 233, 245, 250, 252} {
		assert.InDelta(t, want, samples(out)[i], 1, "sample %d", i)
	}
}

func TestOptimalVOI(t *testing.T) {
	in := row(t, pixel.DepthU8, pixel.Monochrome2, 7, 10, 0, 20, 30, 40, 50)
	d, err := OptimalVOI(in, 0, 0, 6, 1)
	require.NoError(t, err)
	assert.Equal(t, 25.0, d.Center)
	assert.Equal(t, 50.0, d.Width)
	assert.Equal(t, VOILinear, d.Function)

	v := NewVOILUT(d)
	out, err := Apply(v, in)
	require.NoError(t, err)
	got := samples(out)
	for i, want := range []int64{52, 0, 104, 156, 208, 255} {
		assert.InDelta(t, want, got[i], 1, "sample %d", i)
	}

	s16, err := pixel.NewImage(6, 1, pixel.DepthS16, pixel.Monochrome2, 15)
	require.NoError(t, err)
	require.NoError(t, v.RunTransform(in, 0, 0, 6, 1, s16, 0, 0))
	got = samples(s16)
	for i, want := range []int64{-19393, -32768, -6019, 7355, 20729, 32767} {
		assert.InDelta(t, want, got[i], 1, "sample %d", i)
	}

	_, err = OptimalVOI(in, 2, 0, 6, 1)
	require.True(t, dcmerr.Is(err, dcmerr.TransformInvalidArea))
}

func TestPercentileVOI(t *testing.T) {
	in := row(t, pixel.DepthU16, pixel.Monochrome2, 15, 0, 100, 110, 120, 130, 4000)
	d, err := PercentileVOI(in, 0, 0, 6, 1, 0.2, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 115.0, d.Center)
	assert.Equal(t, 30.0, d.Width)
}

func TestLUTClamping(t *testing.T) {
	lut, err := pixel.NewLUT(3, 3, 16, []int32{100, 200, 300}, "")
	require.NoError(t, err)
	in := row(t, pixel.DepthU8, pixel.Monochrome2, 7, 0, 1, 2, 3, 4, 5)
	v := NewLUTTransform(lut)
	out, err := Apply(v, in)
	require.NoError(t, err)
	assert.Equal(t, pixel.DepthU16, out.Depth())
	assert.Equal(t, uint32(15), out.HighBit())
	assert.Equal(t, []int64{100, 100, 100, 100, 200, 300}, samples(out))
}

func TestVOIRejectsColor(t *testing.T) {
	in, err := pixel.NewImage(2, 2, pixel.DepthU8, pixel.RGB, 7)
	require.NoError(t, err)
	out, err := pixel.NewImage(2, 2, pixel.DepthU8, pixel.Monochrome2, 7)
	require.NoError(t, err)
	err = NewVOILUT(VOIDescription{Center: 1, Width: 2}).RunTransform(in, 0, 0, 2, 2, out, 0, 0)
	require.True(t, dcmerr.Is(err, dcmerr.ModalityVOILUT))
	require.True(t, dcmerr.IsTransform(err))
}

func TestInvalidArea(t *testing.T) {
	in := row(t, pixel.DepthU8, pixel.Monochrome2, 7, 1, 2, 3)
	out, err := pixel.NewImage(2, 1, pixel.DepthU8, pixel.Monochrome2, 7)
	require.NoError(t, err)
	err = NewVOILUT(VOIDescription{Center: 1, Width: 2}).RunTransform(in, 0, 0, 3, 1, out, 0, 0)
	require.True(t, dcmerr.Is(err, dcmerr.TransformInvalidArea))
	err = NewVOILUT(VOIDescription{Center: 1, Width: 2}).RunTransform(in, 2, 0, 2, 1, out, 0, 0)
	require.True(t, dcmerr.Is(err, dcmerr.TransformInvalidArea))
}

func TestParseVOIFunction(t *testing.T) {
	for in, want := range map[string]VOIFunction{
		"":             VOILinear,
		"LINEAR":       VOILinear,
		"linear-exact": VOILinearExact,
		"SIGMOID ":     VOISigmoid,
	} {
		got, err := ParseVOIFunction(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseVOIFunction("CUBIC")
	require.Error(t, err)
}

func TestMonochromeRGBRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		depth   pixel.Depth
		highBit uint32
	}{
		{pixel.DepthU8, 7},
		{pixel.DepthU16, 11},
		{pixel.DepthS16, 15},
	} {
		t.Run(tt.depth.String(), func(t *testing.T) {
			in, err := pixel.NewImage(5, 3, tt.depth, pixel.Monochrome2, tt.highBit)
			require.NoError(t, err)
			lo, hi := in.Range()
			for i := 0; i < in.Samples(); i++ {
				in.SetSample(i, lo+int64(i)*(hi-lo)/int64(in.Samples()))
			}

			toRGB, err := GetTransform(pixel.Monochrome2, pixel.RGB)
			require.NoError(t, err)
			rgb, err := Apply(toRGB, in)
			require.NoError(t, err)
			assert.Equal(t, pixel.RGB, rgb.ColorSpace())
			assert.Equal(t, tt.highBit, rgb.HighBit())

			toMono, err := GetTransform(pixel.RGB, pixel.Monochrome2)
			require.NoError(t, err)
			back, err := Apply(toMono, rgb)
			require.NoError(t, err)
			assert.Equal(t, in.Width(), back.Width())
			assert.Equal(t, in.Height(), back.Height())
			assert.Equal(t, tt.highBit, back.HighBit())
			assert.True(t, in.Equal(back))
		})
	}
}

func TestColorTransformChecks(t *testing.T) {
	toRGB, err := GetTransform(pixel.Monochrome2, pixel.RGB)
	require.NoError(t, err)

	in, err := pixel.NewImage(2, 2, pixel.DepthU8, pixel.Monochrome2, 7)
	require.NoError(t, err)
	wrongCS, err := pixel.NewImage(2, 2, pixel.DepthU8, pixel.YBRFull, 7)
	require.NoError(t, err)
	err = toRGB.RunTransform(in, 0, 0, 2, 2, wrongCS, 0, 0)
	require.True(t, dcmerr.Is(err, dcmerr.ColorTransformWrongColorSpace))

	wrongHB, err := pixel.NewImage(2, 2, pixel.DepthU16, pixel.RGB, 11)
	require.NoError(t, err)
	err = toRGB.RunTransform(in, 0, 0, 2, 2, wrongHB, 0, 0)
	require.True(t, dcmerr.Is(err, dcmerr.TransformDifferentHighBit))
}

func TestFactoryDoesNotChain(t *testing.T) {
	_, err := GetTransform(pixel.YBRICT, pixel.Monochrome2)
	require.True(t, dcmerr.Is(err, dcmerr.ColorTransformsFactoryNoTransform))

	_, err = GetTransform(pixel.RGB, pixel.RGB)
	require.True(t, dcmerr.Is(err, dcmerr.ColorTransformsFactoryNoTransform))

	// subsampled names resolve to the base color space
	ct, err := GetTransform("YBR_FULL_422", "RGB")
	require.NoError(t, err)
	assert.Equal(t, pixel.YBRFull, ct.InitialColorSpace())

	first, err := GetTransform(pixel.YBRICT, pixel.RGB)
	require.NoError(t, err)
	second, err := GetTransform(pixel.RGB, pixel.Monochrome2)
	require.NoError(t, err)

	in, err := pixel.NewImage(1, 1, pixel.DepthU8, pixel.YBRICT, 7)
	require.NoError(t, err)
	in.Set(0, 0, 0, 90)
	in.Set(0, 0, 1, 128)
	in.Set(0, 0, 2, 128)
	out, err := Apply(NewChain(first, second), in)
	require.NoError(t, err)
	assert.Equal(t, pixel.Monochrome2, out.ColorSpace())
	assert.Equal(t, int64(90), out.At(0, 0, 0))
}

func TestYBRRoundTrip(t *testing.T) {
	in, err := pixel.NewImage(1, 1, pixel.DepthU8, pixel.RGB, 7)
	require.NoError(t, err)
	in.Set(0, 0, 0, 200)
	in.Set(0, 0, 1, 30)
	in.Set(0, 0, 2, 90)
	toYBR, err := GetTransform(pixel.RGB, pixel.YBRFull)
	require.NoError(t, err)
	toRGB, err := GetTransform(pixel.YBRFull, pixel.RGB)
	require.NoError(t, err)
	out, err := Apply(NewChain(toYBR, toRGB), in)
	require.NoError(t, err)
	for c, want := range []int64{200, 30, 90} {
		assert.InDelta(t, want, out.At(0, 0, c), 1)
	}
}

func TestMonochromeInvert(t *testing.T) {
	in := row(t, pixel.DepthU16, pixel.Monochrome1, 11, 0, 4095, 1000)
	ct, err := GetTransform(pixel.Monochrome1, pixel.Monochrome2)
	require.NoError(t, err)
	out, err := Apply(ct, in)
	require.NoError(t, err)
	assert.Equal(t, []int64{4095, 0, 3095}, samples(out))
}

func TestPaletteToRGB(t *testing.T) {
	red, err := pixel.NewLUT(2, 0, 16, []int32{0, 65535}, "")
	require.NoError(t, err)
	green, err := pixel.NewLUT(2, 0, 16, []int32{1000, 2000}, "")
	require.NoError(t, err)
	blue, err := pixel.NewLUT(2, 0, 16, []int32{5, 6}, "")
	require.NoError(t, err)
	p, err := pixel.NewPalette(red, green, blue)
	require.NoError(t, err)

	in := row(t, pixel.DepthU8, pixel.PaletteColor, 7, 0, 1, 7)
	in.SetPalette(p)
	ct, err := GetTransform(pixel.PaletteColor, pixel.RGB)
	require.NoError(t, err)
	out, err := Apply(ct, in)
	require.NoError(t, err)
	assert.Equal(t, pixel.DepthU16, out.Depth())
	assert.Equal(t, uint32(15), out.HighBit())
	assert.Equal(t, int64(65535), out.At(1, 0, 0))
	assert.Equal(t, int64(1000), out.At(0, 0, 1))
	assert.Equal(t, int64(6), out.At(2, 0, 2))

	in.SetPalette(nil)
	err = ct.RunTransform(in, 0, 0, 3, 1, out, 0, 0)
	require.True(t, dcmerr.Is(err, dcmerr.ColorTransformWrongColorSpace))
}

func TestHighBit(t *testing.T) {
	in := row(t, pixel.DepthU16, pixel.Monochrome2, 11, 0, 4095, 2048)
	out, err := pixel.NewImage(3, 1, pixel.DepthU8, pixel.Monochrome2, 7)
	require.NoError(t, err)
	require.NoError(t, HighBit{}.RunTransform(in, 0, 0, 3, 1, out, 0, 0))
	assert.Equal(t, []int64{0, 255, 128}, samples(out))

	signed, err := pixel.NewImage(3, 1, pixel.DepthS16, pixel.Monochrome2, 15)
	require.NoError(t, err)
	require.NoError(t, HighBit{}.RunTransform(in, 0, 0, 3, 1, signed, 0, 0))
	assert.Equal(t, []int64{-32768, 32752, 0}, samples(signed))

	rgb, err := pixel.NewImage(3, 1, pixel.DepthU8, pixel.RGB, 7)
	require.NoError(t, err)
	err = HighBit{}.RunTransform(in, 0, 0, 3, 1, rgb, 0, 0)
	require.True(t, dcmerr.Is(err, dcmerr.TransformDifferentColorSpaces))
}

func TestModalityRescale(t *testing.T) {
	in := row(t, pixel.DepthU16, pixel.Monochrome2, 11, 0, 1024, 4095)
	m := NewRescale(1, -1024, "HU")
	out, err := Apply(m, in)
	require.NoError(t, err)
	assert.Equal(t, pixel.DepthS16, out.Depth())
	assert.Equal(t, []int64{-1024, 0, 3071}, samples(out))

	frac := NewRescale(0.5, 0.25, "")
	out, err = Apply(frac, in)
	require.NoError(t, err)
	assert.Equal(t, pixel.DepthFloat, out.Depth())
	assert.InDelta(t, 512.25, out.FloatAt(1, 0, 0), 1e-6)

	assert.True(t, NewRescale(1, 0, "").IsEmpty())

	lut, err := pixel.NewLUT(2, 0, 16, []int32{10, 20}, "")
	require.NoError(t, err)
	out, err = Apply(NewModalityLUT(lut, "OD"), in)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 20}, samples(out))

	rgb, err := pixel.NewImage(1, 1, pixel.DepthU8, pixel.RGB, 7)
	require.NoError(t, err)
	_, err = Apply(m, rgb)
	require.True(t, dcmerr.Is(err, dcmerr.ModalityVOILUT))
}

func TestChainEmpty(t *testing.T) {
	c := NewChain(nil, NewRescale(1, 0, ""))
	require.True(t, c.IsEmpty())
	in := row(t, pixel.DepthU8, pixel.Monochrome2, 7, 4, 5)
	out, err := Apply(c, in)
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
}
