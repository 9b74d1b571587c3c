// Package tag defines DICOM tags, their identity inside a data set and the
// data dictionary used to resolve VRs for implicit VR streams.
package tag

// Tag represents a DICOM tag with Group and Element
type Tag struct {
	Group   uint16
	Element uint16
}

// New creates a new Tag
func New(group, element uint16) Tag {
	return Tag{Group: group, Element: element}
}

// Equals compares two tags
func (t Tag) Equals(other Tag) bool {
	return t.Group == other.Group && t.Element == other.Element
}

// Less orders tags by group then element, the on-the-wire order
func (t Tag) Less(other Tag) bool {
	if t.Group != other.Group {
		return t.Group < other.Group
	}
	return t.Element < other.Element
}

// IsPrivate returns true if this is a private tag (odd group number)
func (t Tag) IsPrivate() bool {
	return t.Group%2 == 1
}

// IsPrivateCreator returns true for (gggg,0010-00FF) in an odd group
func (t Tag) IsPrivateCreator() bool {
	return t.IsPrivate() && t.Element >= 0x0010 && t.Element <= 0x00FF
}

// IsGroupLength returns true for the (gggg,0000) group length elements
func (t Tag) IsGroupLength() bool {
	return t.Element == 0x0000
}

// IsGroup0002 returns true if this tag is in the File Meta Information group
func (t Tag) IsGroup0002() bool {
	return t.Group == 0x0002
}

// ID builds the data set identity of this tag at order 0
func (t Tag) ID() ID {
	return ID{Group: t.Group, Element: t.Element}
}

// ID identifies a data element inside one data set. Order disambiguates a
// group that appears more than once in the same data set.
type ID struct {
	Group   uint16
	Order   uint32
	Element uint16
}

// NewID creates an ID at order 0
func NewID(group, element uint16) ID {
	return ID{Group: group, Element: element}
}

// ID returns the id itself, so IDs and Tags both satisfy Identifier
func (id ID) ID() ID { return id }

// Identifier is anything that addresses a data element: a Tag (order 0) or
// a full ID
type Identifier interface {
	ID() ID
}

// Tag drops the order
func (id ID) Tag() Tag {
	return Tag{Group: id.Group, Element: id.Element}
}

// Less orders ids by group, order then element
func (id ID) Less(other ID) bool {
	if id.Group != other.Group {
		return id.Group < other.Group
	}
	if id.Order != other.Order {
		return id.Order < other.Order
	}
	return id.Element < other.Element
}

// Item and delimitation pseudo tags (never stored in a data set)
var (
	Item                     = Tag{0xFFFE, 0xE000}
	ItemDelimitationItem     = Tag{0xFFFE, 0xE00D}
	SequenceDelimitationItem = Tag{0xFFFE, 0xE0DD}
)

// File Meta Information (Group 0002)
var (
	FileMetaInformationGroupLength = Tag{0x0002, 0x0000}
	FileMetaInformationVersion     = Tag{0x0002, 0x0001}
	MediaStorageSOPClassUID        = Tag{0x0002, 0x0002}
	MediaStorageSOPInstanceUID     = Tag{0x0002, 0x0003}
	TransferSyntaxUID              = Tag{0x0002, 0x0010}
	ImplementationClassUID         = Tag{0x0002, 0x0012}
	ImplementationVersionName      = Tag{0x0002, 0x0013}
	SourceApplicationEntityTitle   = Tag{0x0002, 0x0016}
)

// Directory structuring (Group 0004)
var (
	FileSetID                                               = Tag{0x0004, 0x1130}
	OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity = Tag{0x0004, 0x1200}
	OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity  = Tag{0x0004, 0x1202}
	FileSetConsistencyFlag                                  = Tag{0x0004, 0x1212}
	DirectoryRecordSequence                                 = Tag{0x0004, 0x1220}
	OffsetOfTheNextDirectoryRecord                          = Tag{0x0004, 0x1400}
	RecordInUseFlag                                         = Tag{0x0004, 0x1410}
	OffsetOfReferencedLowerLevelDirectoryEntity             = Tag{0x0004, 0x1420}
	DirectoryRecordType                                     = Tag{0x0004, 0x1430}
	ReferencedFileID                                        = Tag{0x0004, 0x1500}
	ReferencedSOPClassUIDInFile                             = Tag{0x0004, 0x1510}
	ReferencedSOPInstanceUIDInFile                          = Tag{0x0004, 0x1511}
	ReferencedTransferSyntaxUIDInFile                       = Tag{0x0004, 0x1512}
)

// SOP Common, patient, study and series
var (
	SpecificCharacterSet   = Tag{0x0008, 0x0005}
	ImageType              = Tag{0x0008, 0x0008}
	InstanceCreationDate   = Tag{0x0008, 0x0012}
	InstanceCreationTime   = Tag{0x0008, 0x0013}
	SOPClassUID            = Tag{0x0008, 0x0016}
	SOPInstanceUID         = Tag{0x0008, 0x0018}
	StudyDate              = Tag{0x0008, 0x0020}
	SeriesDate             = Tag{0x0008, 0x0021}
	AcquisitionDateTime    = Tag{0x0008, 0x002A}
	StudyTime              = Tag{0x0008, 0x0030}
	SeriesTime             = Tag{0x0008, 0x0031}
	AccessionNumber        = Tag{0x0008, 0x0050}
	Modality               = Tag{0x0008, 0x0060}
	Manufacturer           = Tag{0x0008, 0x0070}
	InstitutionName        = Tag{0x0008, 0x0080}
	ReferringPhysicianName = Tag{0x0008, 0x0090}
	TimezoneOffsetFromUTC  = Tag{0x0008, 0x0201}
	StationName            = Tag{0x0008, 0x1010}
	StudyDescription       = Tag{0x0008, 0x1030}
	SeriesDescription      = Tag{0x0008, 0x103E}
	FrameIncrementPointer  = Tag{0x0028, 0x0009}

	PatientName      = Tag{0x0010, 0x0010}
	PatientID        = Tag{0x0010, 0x0020}
	PatientBirthDate = Tag{0x0010, 0x0030}
	PatientSex       = Tag{0x0010, 0x0040}
	PatientAge       = Tag{0x0010, 0x1010}
	PatientWeight    = Tag{0x0010, 0x1030}
	PatientComments  = Tag{0x0010, 0x4000}

	StudyInstanceUID        = Tag{0x0020, 0x000D}
	SeriesInstanceUID       = Tag{0x0020, 0x000E}
	StudyID                 = Tag{0x0020, 0x0010}
	SeriesNumber            = Tag{0x0020, 0x0011}
	InstanceNumber          = Tag{0x0020, 0x0013}
	ImagePositionPatient    = Tag{0x0020, 0x0032}
	ImageOrientationPatient = Tag{0x0020, 0x0037}
	FrameOfReferenceUID     = Tag{0x0020, 0x0052}
)

// Image Pixel module
var (
	SamplesPerPixel           = Tag{0x0028, 0x0002}
	PhotometricInterpretation = Tag{0x0028, 0x0004}
	PlanarConfiguration       = Tag{0x0028, 0x0006}
	NumberOfFrames            = Tag{0x0028, 0x0008}
	Rows                      = Tag{0x0028, 0x0010}
	Columns                   = Tag{0x0028, 0x0011}
	PixelSpacing              = Tag{0x0028, 0x0030}
	BitsAllocated             = Tag{0x0028, 0x0100}
	BitsStored                = Tag{0x0028, 0x0101}
	HighBit                   = Tag{0x0028, 0x0102}
	PixelRepresentation       = Tag{0x0028, 0x0103}
	SmallestImagePixelValue   = Tag{0x0028, 0x0106}
	LargestImagePixelValue    = Tag{0x0028, 0x0107}
	PixelPaddingValue         = Tag{0x0028, 0x0120}
	LossyImageCompression     = Tag{0x0028, 0x2110}
	PixelData                 = Tag{0x7FE0, 0x0010}
)

// VOI LUT and Modality LUT modules
var (
	WindowCenter                 = Tag{0x0028, 0x1050}
	WindowWidth                  = Tag{0x0028, 0x1051}
	RescaleIntercept             = Tag{0x0028, 0x1052}
	RescaleSlope                 = Tag{0x0028, 0x1053}
	RescaleType                  = Tag{0x0028, 0x1054}
	WindowCenterWidthExplanation = Tag{0x0028, 0x1055}
	VOILUTFunction               = Tag{0x0028, 0x1056}
	ModalityLUTSequence          = Tag{0x0028, 0x3000}
	LUTDescriptor                = Tag{0x0028, 0x3002}
	LUTExplanation               = Tag{0x0028, 0x3003}
	ModalityLUTType              = Tag{0x0028, 0x3004}
	LUTData                      = Tag{0x0028, 0x3006}
	VOILUTSequence               = Tag{0x0028, 0x3010}
)

// Palette Color Lookup Table module
var (
	RedPaletteColorLookupTableDescriptor   = Tag{0x0028, 0x1101}
	GreenPaletteColorLookupTableDescriptor = Tag{0x0028, 0x1102}
	BluePaletteColorLookupTableDescriptor  = Tag{0x0028, 0x1103}
	RedPaletteColorLookupTableData         = Tag{0x0028, 0x1201}
	GreenPaletteColorLookupTableData       = Tag{0x0028, 0x1202}
	BluePaletteColorLookupTableData        = Tag{0x0028, 0x1203}
)

// Multi-frame functional groups
var (
	SharedFunctionalGroupsSequence   = Tag{0x5200, 0x9229}
	PerFrameFunctionalGroupsSequence = Tag{0x5200, 0x9230}
	PixelValueTransformationSequence = Tag{0x0028, 0x9145}
	FrameVOILUTSequence              = Tag{0x0028, 0x9132}
)

// Overlay elements, relative to group 0x6000. Use OverlayGroup to address
// overlay planes beyond the first.
var (
	OverlayRows             = Tag{0x6000, 0x0010}
	OverlayColumns          = Tag{0x6000, 0x0011}
	NumberOfFramesInOverlay = Tag{0x6000, 0x0015}
	OverlayDescription      = Tag{0x6000, 0x0022}
	OverlayType             = Tag{0x6000, 0x0040}
	OverlaySubtype          = Tag{0x6000, 0x0045}
	OverlayOrigin           = Tag{0x6000, 0x0050}
	ImageFrameOrigin        = Tag{0x6000, 0x0051}
	OverlayBitsAllocated    = Tag{0x6000, 0x0100}
	OverlayBitPosition      = Tag{0x6000, 0x0102}
	OverlayLabel            = Tag{0x6000, 0x1500}
	ROIArea                 = Tag{0x6000, 0x1301}
	ROIMean                 = Tag{0x6000, 0x1302}
	ROIStandardDeviation    = Tag{0x6000, 0x1303}
	OverlayData             = Tag{0x6000, 0x3000}
)

// OverlayGroup returns the overlay element t for overlay plane n (0..15)
func OverlayGroup(t Tag, n int) Tag {
	return Tag{Group: 0x6000 + uint16(n)*2, Element: t.Element}
}
