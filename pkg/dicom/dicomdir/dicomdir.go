// Package dicomdir reads and builds DICOMDIR files.
//
// The directory records of a DICOMDIR are stored flat in the Directory
// Record Sequence and linked by byte offsets to their next sibling and first
// child. Dir resolves those offsets into an index based tree on load and
// recomputes them in UpdateDataSet.
package dicomdir

import (
	"io"
	"log/slog"

	"github.com/jpfielding/dicomkit/pkg/dicom/codec"
	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
	"github.com/jpfielding/dicomkit/pkg/dicom/vr"
	"github.com/jpfielding/dicomkit/pkg/uid"
)

// MediaStorageDirectoryStorage is the SOP class of a DICOMDIR
const MediaStorageDirectoryStorage = "1.2.840.10008.1.3.10"

// Directory record types (0004,1430)
const (
	Patient        = "PATIENT"
	Study          = "STUDY"
	Series         = "SERIES"
	Image          = "IMAGE"
	Overlay        = "OVERLAY"
	ModalityLUT    = "MODALITY LUT"
	VOILUT         = "VOI LUT"
	Curve          = "CURVE"
	Topic          = "TOPIC"
	Visit          = "VISIT"
	Results        = "RESULTS"
	Interpretation = "INTERPRETATION"
	StoredPrint    = "STORED PRINT"
	RTDose         = "RT DOSE"
	RTStructureSet = "RT STRUCTURE SET"
	RTPlan         = "RT PLAN"
	RTTreatRecord  = "RT TREAT RECORD"
	Presentation   = "PRESENTATION"
	Waveform       = "WAVEFORM"
	SRDocument     = "SR DOCUMENT"
	KeyObjectDoc   = "KEY OBJECT DOC"
	Spectroscopy   = "SPECTROSCOPY"
	RawData        = "RAW DATA"
	Registration   = "REGISTRATION"
	Fiducial       = "FIDUCIAL"
	EncapDoc       = "ENCAP DOC"
	Private        = "PRIVATE"
)

const none = -1

type record struct {
	ds    *dataset.DataSet
	next  int
	child int
}

// Dir is a DICOMDIR: a data set plus the tree of its directory records.
// A Dir is not safe for concurrent mutation.
type Dir struct {
	ds      *dataset.DataSet
	records []record
	root    int
}

// Entry is a directory record owned by a Dir
type Entry struct {
	dir *Dir
	idx int
}

// New creates an empty DICOMDIR in explicit VR little endian
func New(opts ...dataset.Option) (*Dir, error) {
	ds, err := dataset.New(transfer.ExplicitVRLittleEndian, opts...)
	if err != nil {
		return nil, err
	}
	if err := ds.SetString(tag.MediaStorageSOPClassUID, MediaStorageDirectoryStorage); err != nil {
		return nil, err
	}
	if err := ds.SetString(tag.MediaStorageSOPInstanceUID, uid.New()); err != nil {
		return nil, err
	}
	if err := ds.SetUint16(tag.FileSetConsistencyFlag, 0); err != nil {
		return nil, err
	}
	return &Dir{ds: ds, root: none}, nil
}

// FromDataSet links the records of a DICOMDIR read from a stream. The item
// offsets of ds must be those of its encoding, as set by the codec.
func FromDataSet(ds *dataset.DataSet) (*Dir, error) {
	d := &Dir{ds: ds, root: none}
	e, err := ds.GetTag(tag.DirectoryRecordSequence)
	if err != nil && !dcmerr.IsMissingDataElement(err) {
		return nil, err
	}
	if e == nil {
		return d, nil
	}
	byOffset := map[int64]int{}
	for i, item := range e.SequenceItems() {
		d.records = append(d.records, record{ds: item, next: none, child: none})
		byOffset[item.ItemOffset()] = i
	}
	resolve := func(src *dataset.DataSet, t tag.Tag) (int, error) {
		off, err := src.GetUint32Default(t, 0, 0)
		if err != nil {
			return none, err
		}
		if off == 0 {
			return none, nil
		}
		idx, ok := byOffset[int64(off)]
		if !ok {
			return none, dcmerr.New(dcmerr.DicomDirNoEntry, "%s points to offset %d with no record", t, off)
		}
		return idx, nil
	}
	for i := range d.records {
		r := &d.records[i]
		if r.next, err = resolve(r.ds, tag.OffsetOfTheNextDirectoryRecord); err != nil {
			return nil, err
		}
		if r.child, err = resolve(r.ds, tag.OffsetOfReferencedLowerLevelDirectoryEntity); err != nil {
			return nil, err
		}
	}
	if d.root, err = resolve(ds, tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity); err != nil {
		return nil, err
	}
	if _, err := d.walk(); err != nil {
		return nil, err
	}
	slog.Debug("loaded dicomdir", "records", len(d.records))
	return d, nil
}

// Load parses a DICOMDIR file
func Load(path string) (*Dir, error) {
	ds, err := codec.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromDataSet(ds)
}

// DataSet returns the underlying data set. Call UpdateDataSet first to
// have it reflect changes to the tree.
func (d *Dir) DataSet() *dataset.DataSet { return d.ds }

// NewEntry creates an unlinked record of the given type. It becomes part of
// the directory once reachable from the first root record.
func (d *Dir) NewEntry(recordType string) (*Entry, error) {
	ds, err := dataset.New(d.ds.TransferSyntax(),
		dataset.WithDictionary(d.ds.Dictionary()),
		dataset.WithCharsetBackend(d.ds.CharsetBackend()),
		dataset.WithCharsets(d.ds.Charsets()...))
	if err != nil {
		return nil, err
	}
	if err := ds.SetString(tag.DirectoryRecordType, recordType); err != nil {
		return nil, err
	}
	d.records = append(d.records, record{ds: ds, next: none, child: none})
	return &Entry{dir: d, idx: len(d.records) - 1}, nil
}

func (d *Dir) HasRoot() bool { return d.root != none }

// FirstRoot returns the first record of the root directory entity
func (d *Dir) FirstRoot() (*Entry, error) {
	if d.root == none {
		return nil, dcmerr.New(dcmerr.DicomDirNoEntry, "no root record")
	}
	return &Entry{dir: d, idx: d.root}, nil
}

// SetFirstRoot makes e the first record of the root directory entity
func (d *Dir) SetFirstRoot(e *Entry) error {
	if err := d.owns(e); err != nil {
		return err
	}
	d.root = e.idx
	return nil
}

// Entries returns every record reachable from the root in file order
func (d *Dir) Entries() ([]*Entry, error) {
	order, err := d.walk()
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, len(order))
	for i, idx := range order {
		out[i] = &Entry{dir: d, idx: idx}
	}
	return out, nil
}

func (d *Dir) owns(e *Entry) error {
	if e == nil || e.dir != d {
		return dcmerr.New(dcmerr.DicomDirNoEntry, "entry does not belong to this directory")
	}
	return nil
}

// walk lists the records reachable from the root depth first: each record,
// then its children, then its next sibling. A record met twice is a cycle.
func (d *Dir) walk() ([]int, error) {
	var order []int
	visited := make([]bool, len(d.records))
	var visit func(idx int) error
	visit = func(idx int) error {
		for ; idx != none; idx = d.records[idx].next {
			if visited[idx] {
				return dcmerr.New(dcmerr.DicomDirCircularReference, "record %d is referenced twice", idx)
			}
			visited[idx] = true
			order = append(order, idx)
			if err := visit(d.records[idx].child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := visit(d.root); err != nil {
		return nil, err
	}
	return order, nil
}

// reaches reports whether target is from or lies below or after it
func (d *Dir) reaches(from, target int) bool {
	visited := make([]bool, len(d.records))
	stack := []int{from}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if idx == none || visited[idx] {
			continue
		}
		if idx == target {
			return true
		}
		visited[idx] = true
		stack = append(stack, d.records[idx].next, d.records[idx].child)
	}
	return false
}

func (d *Dir) link(e, other *Entry, field func(*record) *int) error {
	if err := d.owns(e); err != nil {
		return err
	}
	to := none
	if other != nil {
		if err := d.owns(other); err != nil {
			return err
		}
		if d.reaches(other.idx, e.idx) {
			return dcmerr.New(dcmerr.DicomDirCircularReference, "linking record %d to %d creates a cycle", e.idx, other.idx)
		}
		to = other.idx
	}
	*field(&d.records[e.idx]) = to
	return nil
}

// UpdateDataSet rewrites the Directory Record Sequence from the tree and
// fills in every record offset
func (d *Dir) UpdateDataSet() error {
	order, err := d.walk()
	if err != nil {
		return err
	}
	d.ds.RemoveTag(tag.DirectoryRecordSequence)
	if _, err := d.ds.GetTagCreate(tag.DirectoryRecordSequence, vr.SQ); err != nil {
		return err
	}
	for _, idx := range order {
		r := d.records[idx].ds
		if err := d.ds.AppendSequenceDataSet(tag.DirectoryRecordSequence, r); err != nil {
			return err
		}
		for _, t := range []tag.Tag{tag.OffsetOfTheNextDirectoryRecord, tag.OffsetOfReferencedLowerLevelDirectoryEntity} {
			if err := r.SetUint32(t, 0); err != nil {
				return err
			}
		}
		if err := r.SetUint16(tag.RecordInUseFlag, 0xFFFF); err != nil {
			return err
		}
	}
	for _, t := range []tag.Tag{tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity, tag.OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity} {
		if err := d.ds.SetUint32(t, 0); err != nil {
			return err
		}
	}

	// offsets are fixed size, so a dry run places every item
	if _, err := codec.Save(io.Discard, d.ds); err != nil {
		return err
	}
	offset := func(idx int) uint32 {
		if idx == none {
			return 0
		}
		return uint32(d.records[idx].ds.ItemOffset())
	}
	for _, idx := range order {
		r := d.records[idx]
		if err := r.ds.SetUint32(tag.OffsetOfTheNextDirectoryRecord, offset(r.next)); err != nil {
			return err
		}
		if err := r.ds.SetUint32(tag.OffsetOfReferencedLowerLevelDirectoryEntity, offset(r.child)); err != nil {
			return err
		}
	}
	last := d.root
	for last != none && d.records[last].next != none {
		last = d.records[last].next
	}
	if err := d.ds.SetUint32(tag.OffsetOfTheFirstDirectoryRecordOfTheRootDirectoryEntity, offset(d.root)); err != nil {
		return err
	}
	return d.ds.SetUint32(tag.OffsetOfTheLastDirectoryRecordOfTheRootDirectoryEntity, offset(last))
}

// Save updates the data set and writes it to w
func (d *Dir) Save(w io.Writer) (int64, error) {
	if err := d.UpdateDataSet(); err != nil {
		return 0, err
	}
	return codec.Save(w, d.ds)
}

// WriteFile updates the data set and writes it to path
func (d *Dir) WriteFile(path string) error {
	if err := d.UpdateDataSet(); err != nil {
		return err
	}
	return codec.WriteFile(path, d.ds)
}

func (e *Entry) DataSet() *dataset.DataSet { return e.dir.records[e.idx].ds }

// Type returns the directory record type, e.g. PATIENT
func (e *Entry) Type() (string, error) {
	return e.DataSet().GetString(tag.DirectoryRecordType, 0)
}

func (e *Entry) HasNext() bool { return e.dir.records[e.idx].next != none }

func (e *Entry) HasChildren() bool { return e.dir.records[e.idx].child != none }

// Next returns the next sibling
func (e *Entry) Next() (*Entry, error) {
	next := e.dir.records[e.idx].next
	if next == none {
		return nil, dcmerr.New(dcmerr.DicomDirNoEntry, "record %d has no next sibling", e.idx)
	}
	return &Entry{dir: e.dir, idx: next}, nil
}

// FirstChild returns the first record of the lower level entity
func (e *Entry) FirstChild() (*Entry, error) {
	child := e.dir.records[e.idx].child
	if child == none {
		return nil, dcmerr.New(dcmerr.DicomDirNoEntry, "record %d has no children", e.idx)
	}
	return &Entry{dir: e.dir, idx: child}, nil
}

// Children lists the records of the lower level entity
func (e *Entry) Children() []*Entry {
	var out []*Entry
	seen := map[int]bool{}
	for idx := e.dir.records[e.idx].child; idx != none && !seen[idx]; idx = e.dir.records[idx].next {
		seen[idx] = true
		out = append(out, &Entry{dir: e.dir, idx: idx})
	}
	return out
}

// SetNext links next as the following sibling; nil unlinks
func (e *Entry) SetNext(next *Entry) error {
	return e.dir.link(e, next, func(r *record) *int { return &r.next })
}

// SetFirstChild links child as the first record of the lower level entity;
// nil unlinks
func (e *Entry) SetFirstChild(child *Entry) error {
	return e.dir.link(e, child, func(r *record) *int { return &r.child })
}

// FileParts returns the path components of the referenced file
func (e *Entry) FileParts() ([]string, error) {
	return e.DataSet().GetStrings(tag.ReferencedFileID)
}

func (e *Entry) SetFileParts(parts ...string) error {
	return e.DataSet().SetStrings(tag.ReferencedFileID, parts...)
}
