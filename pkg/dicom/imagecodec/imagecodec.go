// Package imagecodec is the registry of pixel data codecs for encapsulated
// transfer syntaxes. A codec turns one frame into one compressed fragment
// and back. Codecs register themselves, usually from an init function.
package imagecodec

import (
	"sync"

	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
)

// Frame describes the image a fragment decodes into. The values come from
// the image pixel module of the data set.
type Frame struct {
	Width      uint32
	Height     uint32
	Depth      pixel.Depth
	ColorSpace string
	HighBit    uint32
}

// Codec compresses and decompresses single frames
type Codec interface {
	Name() string
	Encode(img *pixel.Image) ([]byte, error)
	Decode(data []byte, f Frame) (*pixel.Image, error)
}

var (
	mu     sync.RWMutex
	codecs = map[transfer.Syntax]Codec{}
)

// Register installs c for ts, replacing any previous codec
func Register(ts transfer.Syntax, c Codec) {
	mu.Lock()
	defer mu.Unlock()
	codecs[ts] = c
}

// Unregister removes the codec of ts
func Unregister(ts transfer.Syntax) {
	mu.Lock()
	defer mu.Unlock()
	delete(codecs, ts)
}

// Lookup returns the codec of ts
func Lookup(ts transfer.Syntax) (Codec, error) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := codecs[ts]
	if !ok {
		return nil, dcmerr.New(dcmerr.CodecWrongTransferSyntax, "no pixel codec for %s", ts.Name())
	}
	return c, nil
}

// Registered lists the syntaxes that have a codec
func Registered() []transfer.Syntax {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]transfer.Syntax, 0, len(codecs))
	for ts := range codecs {
		out = append(out, ts)
	}
	return out
}
