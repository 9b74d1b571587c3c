package codec

import (
	"github.com/jpfielding/dicomkit/pkg/dicom/charset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
)

const (
	// DefaultMaxDepth bounds sequence nesting
	DefaultMaxDepth = 16
	// DefaultLazyThreshold keeps values above 256 KiB in the stream when
	// the source supports random access
	DefaultLazyThreshold = 256 * 1024
)

type config struct {
	lazyThreshold int64
	maxDepth      int
	syntax        transfer.Syntax
	dict          *tag.Dictionary
	dsOpts        []dataset.Option
}

func newConfig(opts []Option) (*config, error) {
	c := &config{
		lazyThreshold: DefaultLazyThreshold,
		maxDepth:      DefaultMaxDepth,
		dict:          tag.Default,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Option configures loading
type Option func(*config) error

// WithLazyThreshold sets the size above which values are left in the
// source stream and read on demand. Zero loads everything.
func WithLazyThreshold(n int64) Option {
	return func(c *config) error {
		if n < 0 {
			return dcmerr.New(dcmerr.CodecWrongFormat, "negative lazy threshold %d", n)
		}
		c.lazyThreshold = n
		return nil
	}
}

// WithMaxDepth limits the nesting of sequences
func WithMaxDepth(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return dcmerr.New(dcmerr.CodecWrongFormat, "max depth %d", n)
		}
		c.maxDepth = n
		return nil
	}
}

// WithDefaultSyntax is the transfer syntax assumed for streams without file
// meta information. When unset the syntax is guessed from the first element.
func WithDefaultSyntax(ts transfer.Syntax) Option {
	return func(c *config) error {
		if !ts.IsKnown() {
			return dcmerr.New(dcmerr.DataSetUnknownTransferSyntax, "transfer syntax %q", string(ts))
		}
		c.syntax = ts
		return nil
	}
}

// WithDictionary resolves implicit VRs with d and hands it to the data set
func WithDictionary(d *tag.Dictionary) Option {
	return func(c *config) error {
		if d == nil {
			return dcmerr.New(dcmerr.DictionaryUnknownTag, "nil dictionary")
		}
		c.dict = d
		c.dsOpts = append(c.dsOpts, dataset.WithDictionary(d))
		return nil
	}
}

// WithCharsetBackend selects the charset back end of the loaded data set
func WithCharsetBackend(b charset.Backend) Option {
	return func(c *config) error {
		c.dsOpts = append(c.dsOpts, dataset.WithCharsetBackend(b))
		return nil
	}
}

// WithDataSetOptions passes options through to dataset.New
func WithDataSetOptions(opts ...dataset.Option) Option {
	return func(c *config) error {
		c.dsOpts = append(c.dsOpts, opts...)
		return nil
	}
}
