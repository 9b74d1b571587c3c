package tag

import (
	"sync"

	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
)

// Entry is one row of the data dictionary
type Entry struct {
	Tag  Tag
	VR   vr.VR
	Name string
}

// Dictionary resolves VRs and names for tags. The zero value is not usable,
// use NewDictionary or Default.
type Dictionary struct {
	mu      sync.RWMutex
	entries map[Tag]Entry
}

// NewDictionary builds a dictionary from the standard table plus extra entries
func NewDictionary(extra ...Entry) *Dictionary {
	d := &Dictionary{entries: make(map[Tag]Entry, len(standard)+len(extra))}
	for _, e := range standard {
		d.entries[e.Tag] = e
	}
	for _, e := range extra {
		d.entries[e.Tag] = e
	}
	return d
}

// Default is the process wide dictionary used when no other is configured
var Default = NewDictionary()

// Register adds or replaces an entry, typically for private tags
func (d *Dictionary) Register(e Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[e.Tag] = e
}

// Lookup finds the entry for t, resolving repeating groups
func (d *Dictionary) Lookup(t Tag) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.entries[t]; ok {
		return e, true
	}
	// 50xx curves and 60xx overlays repeat at even increments
	if t.Group&0xFF01 == 0x6000 || t.Group&0xFF01 == 0x5000 {
		if e, ok := d.entries[Tag{Group: t.Group & 0xFF00, Element: t.Element}]; ok {
			e.Tag = t
			return e, true
		}
	}
	switch {
	case t.IsGroupLength():
		return Entry{Tag: t, VR: vr.UL, Name: "Group Length"}, true
	case t.IsPrivateCreator():
		return Entry{Tag: t, VR: vr.LO, Name: "Private Creator"}, true
	}
	return Entry{}, false
}

// VR returns the dictionary VR for t, UN when the tag is unknown
func (d *Dictionary) VR(t Tag) vr.VR {
	if e, ok := d.Lookup(t); ok {
		return e.VR
	}
	return vr.UN
}

// Name returns the dictionary name for t, empty when unknown
func (d *Dictionary) Name(t Tag) string {
	if e, ok := d.Lookup(t); ok {
		return e.Name
	}
	return ""
}

// LookupName returns a human-readable name using the default dictionary
func (t Tag) LookupName() string {
	if n := Default.Name(t); n != "" {
		return n
	}
	if t.IsPrivate() {
		return "Private Tag"
	}
	return "Unknown"
}

var standard = []Entry{
	{FileMetaInformationGroupLength, vr.UL, "File Meta Information Group Length"},
	{FileMetaInformationVersion, vr.OB, "File Meta Information Version"},
	{MediaStorageSOPClassUID, vr.UI, "Media Storage SOP Class UID"},
	{MediaStorageSOPInstanceUID, vr.UI, "Media Storage SOP Instance UID"},
	{TransferSyntaxUID, vr.UI, "Transfer Syntax UID"},
	{ImplementationClassUID, vr.UI, "Implementation Class UID"},
	{ImplementationVersionName, vr.SH, "Implementation Version Name"},
	{SourceApplicationEntityTitle, vr.AE, "Source Application Entity Title"},

	{FileSetID, vr.CS, "File-set ID"},
	{OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity, vr.UL, "Offset of the First Directory Record of the Root Directory Entity"},
	{OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity, vr.UL, "Offset of the Last Directory Record of the Root Directory Entity"},
	{FileSetConsistencyFlag, vr.US, "File-set Consistency Flag"},
	{DirectoryRecordSequence, vr.SQ, "Directory Record Sequence"},
	{OffsetOfTheNextDirectoryRecord, vr.UL, "Offset of the Next Directory Record"},
	{RecordInUseFlag, vr.US, "Record In-use Flag"},
	{OffsetOfReferencedLowerLevelDirectoryEntity, vr.UL, "Offset of Referenced Lower-Level Directory Entity"},
	{DirectoryRecordType, vr.CS, "Directory Record Type"},
	{ReferencedFileID, vr.CS, "Referenced File ID"},
	{ReferencedSOPClassUIDInFile, vr.UI, "Referenced SOP Class UID in File"},
	{ReferencedSOPInstanceUIDInFile, vr.UI, "Referenced SOP Instance UID in File"},
	{ReferencedTransferSyntaxUIDInFile, vr.UI, "Referenced Transfer Syntax UID in File"},

	{SpecificCharacterSet, vr.CS, "Specific Character Set"},
	{ImageType, vr.CS, "Image Type"},
	{InstanceCreationDate, vr.DA, "Instance Creation Date"},
	{InstanceCreationTime, vr.TM, "Instance Creation Time"},
	{SOPClassUID, vr.UI, "SOP Class UID"},
	{SOPInstanceUID, vr.UI, "SOP Instance UID"},
	{StudyDate, vr.DA, "Study Date"},
	{SeriesDate, vr.DA, "Series Date"},
	{AcquisitionDateTime, vr.DT, "Acquisition DateTime"},
	{StudyTime, vr.TM, "Study Time"},
	{SeriesTime, vr.TM, "Series Time"},
	{AccessionNumber, vr.SH, "Accession Number"},
	{Modality, vr.CS, "Modality"},
	{Manufacturer, vr.LO, "Manufacturer"},
	{InstitutionName, vr.LO, "Institution Name"},
	{ReferringPhysicianName, vr.PN, "Referring Physician's Name"},
	{TimezoneOffsetFromUTC, vr.SH, "Timezone Offset From UTC"},
	{StationName, vr.SH, "Station Name"},
	{StudyDescription, vr.LO, "Study Description"},
	{SeriesDescription, vr.LO, "Series Description"},
	{FrameIncrementPointer, vr.AT, "Frame Increment Pointer"},

	{PatientName, vr.PN, "Patient's Name"},
	{PatientID, vr.LO, "Patient ID"},
	{PatientBirthDate, vr.DA, "Patient's Birth Date"},
	{PatientSex, vr.CS, "Patient's Sex"},
	{PatientAge, vr.AS, "Patient's Age"},
	{PatientWeight, vr.DS, "Patient's Weight"},
	{PatientComments, vr.LT, "Patient Comments"},

	{StudyInstanceUID, vr.UI, "Study Instance UID"},
	{SeriesInstanceUID, vr.UI, "Series Instance UID"},
	{StudyID, vr.SH, "Study ID"},
	{SeriesNumber, vr.IS, "Series Number"},
	{InstanceNumber, vr.IS, "Instance Number"},
	{ImagePositionPatient, vr.DS, "Image Position (Patient)"},
	{ImageOrientationPatient, vr.DS, "Image Orientation (Patient)"},
	{FrameOfReferenceUID, vr.UI, "Frame of Reference UID"},

	{SamplesPerPixel, vr.US, "Samples per Pixel"},
	{PhotometricInterpretation, vr.CS, "Photometric Interpretation"},
	{PlanarConfiguration, vr.US, "Planar Configuration"},
	{NumberOfFrames, vr.IS, "Number of Frames"},
	{Rows, vr.US, "Rows"},
	{Columns, vr.US, "Columns"},
	{PixelSpacing, vr.DS, "Pixel Spacing"},
	{BitsAllocated, vr.US, "Bits Allocated"},
	{BitsStored, vr.US, "Bits Stored"},
	{HighBit, vr.US, "High Bit"},
	{PixelRepresentation, vr.US, "Pixel Representation"},
	{SmallestImagePixelValue, vr.US, "Smallest Image Pixel Value"},
	{LargestImagePixelValue, vr.US, "Largest Image Pixel Value"},
	{PixelPaddingValue, vr.US, "Pixel Padding Value"},
	{LossyImageCompression, vr.CS, "Lossy Image Compression"},
	{PixelData, vr.OW, "Pixel Data"},

	{WindowCenter, vr.DS, "Window Center"},
	{WindowWidth, vr.DS, "Window Width"},
	{RescaleIntercept, vr.DS, "Rescale Intercept"},
	{RescaleSlope, vr.DS, "Rescale Slope"},
	{RescaleType, vr.LO, "Rescale Type"},
	{WindowCenterWidthExplanation, vr.LO, "Window Center & Width Explanation"},
	{VOILUTFunction, vr.CS, "VOI LUT Function"},
	{ModalityLUTSequence, vr.SQ, "Modality LUT Sequence"},
	{LUTDescriptor, vr.US, "LUT Descriptor"},
	{LUTExplanation, vr.LO, "LUT Explanation"},
	{ModalityLUTType, vr.LO, "Modality LUT Type"},
	{LUTData, vr.OW, "LUT Data"},
	{VOILUTSequence, vr.SQ, "VOI LUT Sequence"},

	{RedPaletteColorLookupTableDescriptor, vr.US, "Red Palette Color Lookup Table Descriptor"},
	{GreenPaletteColorLookupTableDescriptor, vr.US, "Green Palette Color Lookup Table Descriptor"},
	{BluePaletteColorLookupTableDescriptor, vr.US, "Blue Palette Color Lookup Table Descriptor"},
	{RedPaletteColorLookupTableData, vr.OW, "Red Palette Color Lookup Table Data"},
	{GreenPaletteColorLookupTableData, vr.OW, "Green Palette Color Lookup Table Data"},
	{BluePaletteColorLookupTableData, vr.OW, "Blue Palette Color Lookup Table Data"},

	{SharedFunctionalGroupsSequence, vr.SQ, "Shared Functional Groups Sequence"},
	{PerFrameFunctionalGroupsSequence, vr.SQ, "Per-frame Functional Groups Sequence"},
	{PixelValueTransformationSequence, vr.SQ, "Pixel Value Transformation Sequence"},
	{FrameVOILUTSequence, vr.SQ, "Frame VOI LUT Sequence"},

	{OverlayRows, vr.US, "Overlay Rows"},
	{OverlayColumns, vr.US, "Overlay Columns"},
	{NumberOfFramesInOverlay, vr.IS, "Number of Frames in Overlay"},
	{OverlayDescription, vr.LO, "Overlay Description"},
	{OverlayType, vr.CS, "Overlay Type"},
	{OverlaySubtype, vr.LO, "Overlay Subtype"},
	{OverlayOrigin, vr.SS, "Overlay Origin"},
	{ImageFrameOrigin, vr.US, "Image Frame Origin"},
	{OverlayBitsAllocated, vr.US, "Overlay Bits Allocated"},
	{OverlayBitPosition, vr.US, "Overlay Bit Position"},
	{OverlayLabel, vr.LO, "Overlay Label"},
	{ROIArea, vr.IS, "ROI Area"},
	{ROIMean, vr.DS, "ROI Mean"},
	{ROIStandardDeviation, vr.DS, "ROI Standard Deviation"},
	{OverlayData, vr.OW, "Overlay Data"},
}
