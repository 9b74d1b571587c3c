// Package dcmerr is the single error type of the toolkit. A Code names the
// specific failure and Kind groups codes into the families callers test for.
package dcmerr

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Kind groups error codes
type Kind int

const (
	KindUnknown Kind = iota
	KindMissingDataElement
	KindDataHandler
	KindCharset
	KindDataSet
	KindImage
	KindTransform
	KindLUT
	KindCodec
	KindStream
	KindMemory
	KindDictionary
	KindDicomDir
)

func (k Kind) String() string {
	switch k {
	case KindMissingDataElement:
		return "MissingDataElement"
	case KindDataHandler:
		return "DataHandler"
	case KindCharset:
		return "CharsetConversion"
	case KindDataSet:
		return "DataSet"
	case KindImage:
		return "Image"
	case KindTransform:
		return "Transform"
	case KindLUT:
		return "Lut"
	case KindCodec:
		return "Codec"
	case KindStream:
		return "Stream"
	case KindMemory:
		return "Memory"
	case KindDictionary:
		return "Dictionary"
	case KindDicomDir:
		return "DicomDir"
	default:
		return "Unknown"
	}
}

// Code names one specific failure
type Code int

const (
	Unknown Code = iota

	MissingGroup
	MissingTag
	MissingBuffer
	MissingItem

	DataHandlerConversion
	DataHandlerCorruptedBuffer
	DataHandlerInvalidData

	CharsetConversionNoTable
	CharsetConversionNoSupportedTable
	CharsetConversionCannotConvert

	DataSetDifferentFormat
	DataSetUnknownTransferSyntax
	DataSetWrongFrame
	DataSetImageDoesntExist
	DataSetImagePaletteColorIsReadOnly
	DataSetCorruptedOffsetTable
	InvalidSequenceItem

	ImageUnknownDepth
	ImageUnknownColorSpace
	ImageInvalidSize

	TransformInvalidArea
	TransformDifferentHighBit
	TransformDifferentColorSpaces
	ColorTransformWrongColorSpace
	ColorTransformsFactoryNoTransform
	ModalityVOILUT

	LutCorrupted

	CodecWrongFormat
	CodecCorruptedFile
	CodecWrongTransferSyntax
	CodecImageTooBig
	CodecDepthLimitReached

	StreamOpen
	StreamRead
	StreamWrite
	StreamEOF
	StreamClosed

	MemorySize

	DictionaryUnknownTag
	DictionaryUnknownDataType

	DicomDirNoEntry
	DicomDirCircularReference
)

var names = map[Code]string{
	Unknown:                            "Unknown",
	MissingGroup:                       "MissingGroup",
	MissingTag:                         "MissingTag",
	MissingBuffer:                      "MissingBuffer",
	MissingItem:                        "MissingItem",
	DataHandlerConversion:              "DataHandlerConversion",
	DataHandlerCorruptedBuffer:         "DataHandlerCorruptedBuffer",
	DataHandlerInvalidData:             "DataHandlerInvalidData",
	CharsetConversionNoTable:           "CharsetConversionNoTable",
	CharsetConversionNoSupportedTable:  "CharsetConversionNoSupportedTable",
	CharsetConversionCannotConvert:     "CharsetConversionCannotConvert",
	DataSetDifferentFormat:             "DataSetDifferentFormat",
	DataSetUnknownTransferSyntax:       "DataSetUnknownTransferSyntax",
	DataSetWrongFrame:                  "DataSetWrongFrame",
	DataSetImageDoesntExist:            "DataSetImageDoesntExist",
	DataSetImagePaletteColorIsReadOnly: "DataSetImagePaletteColorIsReadOnly",
	DataSetCorruptedOffsetTable:        "DataSetCorruptedOffsetTable",
	InvalidSequenceItem:                "InvalidSequenceItem",
	ImageUnknownDepth:                  "ImageUnknownDepth",
	ImageUnknownColorSpace:             "ImageUnknownColorSpace",
	ImageInvalidSize:                   "ImageInvalidSize",
	TransformInvalidArea:               "TransformInvalidArea",
	TransformDifferentHighBit:          "TransformDifferentHighBit",
	TransformDifferentColorSpaces:      "TransformDifferentColorSpaces",
	ColorTransformWrongColorSpace:      "ColorTransformWrongColorSpace",
	ColorTransformsFactoryNoTransform:  "ColorTransformsFactoryNoTransform",
	ModalityVOILUT:                     "ModalityVOILUT",
	LutCorrupted:                       "LutCorrupted",
	CodecWrongFormat:                   "CodecWrongFormat",
	CodecCorruptedFile:                 "CodecCorruptedFile",
	CodecWrongTransferSyntax:           "CodecWrongTransferSyntax",
	CodecImageTooBig:                   "CodecImageTooBig",
	CodecDepthLimitReached:             "CodecDepthLimitReached",
	StreamOpen:                         "StreamOpen",
	StreamRead:                         "StreamRead",
	StreamWrite:                        "StreamWrite",
	StreamEOF:                          "StreamEOF",
	StreamClosed:                       "StreamClosed",
	MemorySize:                         "MemorySize",
	DictionaryUnknownTag:               "DictionaryUnknownTag",
	DictionaryUnknownDataType:          "DictionaryUnknownDataType",
	DicomDirNoEntry:                    "DicomDirNoEntry",
	DicomDirCircularReference:          "DicomDirCircularReference",
}

func (c Code) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Kind returns the family of the code
func (c Code) Kind() Kind {
	switch {
	case c >= MissingGroup && c <= MissingItem:
		return KindMissingDataElement
	case c >= DataHandlerConversion && c <= DataHandlerInvalidData:
		return KindDataHandler
	case c >= CharsetConversionNoTable && c <= CharsetConversionCannotConvert:
		return KindCharset
	case c >= DataSetDifferentFormat && c <= InvalidSequenceItem:
		return KindDataSet
	case c >= ImageUnknownDepth && c <= ImageInvalidSize:
		return KindImage
	case c >= TransformInvalidArea && c <= ModalityVOILUT:
		return KindTransform
	case c == LutCorrupted:
		return KindLUT
	case c >= CodecWrongFormat && c <= CodecDepthLimitReached:
		return KindCodec
	case c >= StreamOpen && c <= StreamClosed:
		return KindStream
	case c == MemorySize:
		return KindMemory
	case c >= DictionaryUnknownTag && c <= DictionaryUnknownDataType:
		return KindDictionary
	case c >= DicomDirNoEntry && c <= DicomDirCircularReference:
		return KindDicomDir
	default:
		return KindUnknown
	}
}

// Error is the tagged error value carried by every failure of the toolkit
type Error struct {
	Code      Code
	Msg       string
	Permanent bool
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Msg
}

// Is matches another *Error with the same code, so a bare
// &Error{Code: MissingTag} works as a target for errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

// New creates an error with a stack trace attached
func New(code Code, format string, args ...any) error {
	return errors.WithStack(&Error{Code: code, Msg: fmt.Sprintf(format, args...)})
}

// NewPermanent is New with the Permanent flag set
func NewPermanent(code Code, format string, args ...any) error {
	return errors.WithStack(&Error{Code: code, Msg: fmt.Sprintf(format, args...), Permanent: true})
}

// Wrap attaches context to err while keeping its code reachable. A nil err
// stays nil.
func Wrap(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

// FromIO turns an io error into a Stream error. io.EOF and
// io.ErrUnexpectedEOF become StreamEOF.
func FromIO(err error, code Code, what string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if stderrors.As(err, &de) {
		return errors.Wrap(err, what)
	}
	if isEOF(err) {
		code = StreamEOF
	}
	return errors.WithStack(&Error{Code: code, Msg: what + ": " + err.Error()})
}

func isEOF(err error) bool {
	return stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF)
}

// CodeOf extracts the code of the first *Error in the chain
func CodeOf(err error) (Code, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code, true
	}
	return Unknown, false
}

// Is reports whether err carries the given code
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsKind reports whether err carries a code of the given family
func IsKind(err error, kind Kind) bool {
	c, ok := CodeOf(err)
	return ok && c.Kind() == kind
}

// IsPermanent reports the Permanent flag of the carried error
func IsPermanent(err error) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Permanent
}

func IsMissingDataElement(err error) bool { return IsKind(err, KindMissingDataElement) }
func IsDataHandler(err error) bool        { return IsKind(err, KindDataHandler) }
func IsCharset(err error) bool            { return IsKind(err, KindCharset) }
func IsDataSet(err error) bool            { return IsKind(err, KindDataSet) }
func IsImage(err error) bool              { return IsKind(err, KindImage) }
func IsTransform(err error) bool          { return IsKind(err, KindTransform) }
func IsCodec(err error) bool              { return IsKind(err, KindCodec) }
func IsStream(err error) bool             { return IsKind(err, KindStream) }
func IsMemory(err error) bool             { return IsKind(err, KindMemory) }

// IsEOF distinguishes a graceful end of stream from other stream failures
func IsEOF(err error) bool {
	return Is(err, StreamEOF) || Is(err, StreamClosed)
}

// Trace renders the accumulated context and the stack of the innermost error
func Trace(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%+v", err)
}
