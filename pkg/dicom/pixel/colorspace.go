package pixel

import "strings"

// Photometric interpretations
const (
	Monochrome1   = "MONOCHROME1"
	Monochrome2   = "MONOCHROME2"
	PaletteColor  = "PALETTE COLOR"
	RGB           = "RGB"
	YBRFull       = "YBR_FULL"
	YBRFull422    = "YBR_FULL_422"
	YBRPartial422 = "YBR_PARTIAL_422"
	YBRPartial420 = "YBR_PARTIAL_420"
	YBRICT        = "YBR_ICT"
	YBRRCT        = "YBR_RCT"
	HSV           = "HSV"
	ARGB          = "ARGB"
	CMYK          = "CMYK"
)

// NormalizeColorSpace upper-cases and trims the name and drops the
// chroma subsampling suffix
func NormalizeColorSpace(cs string) string {
	cs = strings.ToUpper(strings.TrimSpace(strings.TrimRight(cs, "\x00")))
	for _, suffix := range []string{"_420", "_422"} {
		cs = strings.TrimSuffix(cs, suffix)
	}
	return cs
}

// Channels returns the samples per pixel of a color space, 0 when unknown
func Channels(cs string) int {
	switch NormalizeColorSpace(cs) {
	case Monochrome1, Monochrome2, PaletteColor:
		return 1
	case RGB, "YBR_FULL", "YBR_PARTIAL", YBRICT, YBRRCT, HSV:
		return 3
	case ARGB, CMYK:
		return 4
	default:
		return 0
	}
}

// IsMonochrome reports MONOCHROME1 and MONOCHROME2
func IsMonochrome(cs string) bool {
	cs = NormalizeColorSpace(cs)
	return cs == Monochrome1 || cs == Monochrome2
}

// IsSubsampledX reports horizontal chroma subsampling (_422 and _420)
func IsSubsampledX(cs string) bool {
	cs = strings.ToUpper(strings.TrimSpace(cs))
	return strings.HasSuffix(cs, "_422") || strings.HasSuffix(cs, "_420")
}

// IsSubsampledY reports vertical chroma subsampling (_420)
func IsSubsampledY(cs string) bool {
	return strings.HasSuffix(strings.ToUpper(strings.TrimSpace(cs)), "_420")
}

// CanSubsample reports whether the color space has chroma channels
func CanSubsample(cs string) bool {
	cs = NormalizeColorSpace(cs)
	return strings.HasPrefix(cs, "YBR_") && cs != YBRICT && cs != YBRRCT
}

// MakeSubsampled appends the subsampling suffix when the color space allows it
func MakeSubsampled(cs string, x, y bool) string {
	cs = NormalizeColorSpace(cs)
	if !CanSubsample(cs) {
		return cs
	}
	switch {
	case x && y:
		return cs + "_420"
	case x:
		return cs + "_422"
	default:
		return cs
	}
}
