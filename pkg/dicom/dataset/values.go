package dataset

import (
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/handlers"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
)

// Typed access to value i of buffer 0. The Default variants return def
// when the element, buffer or value is missing; any other failure is still
// returned. Setters replace buffer 0 with a single value and use the
// dictionary VR when the element does not exist yet.

func get[T any](ds *DataSet, t tag.Identifier, i int, read func(handlers.Reading, int) (T, error)) (T, error) {
	var zero T
	h, err := ds.ReadingHandler(t, 0)
	if err != nil {
		return zero, err
	}
	return read(h, i)
}

func getDefault[T any](ds *DataSet, t tag.Identifier, i int, def T, read func(handlers.Reading, int) (T, error)) (T, error) {
	v, err := get(ds, t, i, read)
	if dcmerr.IsMissingDataElement(err) {
		return def, nil
	}
	return v, err
}

func set[T any](ds *DataSet, t tag.Identifier, v T, write func(handlers.Writing, int, T) error) error {
	w, err := ds.WritingHandler(t, 0, "")
	if err != nil {
		return err
	}
	if err := write(w, 0, v); err != nil {
		return err
	}
	return w.Commit()
}

func (ds *DataSet) GetString(t tag.Identifier, i int) (string, error) {
	return get(ds, t, i, handlers.Reading.GetString)
}

func (ds *DataSet) GetStringDefault(t tag.Identifier, i int, def string) (string, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetString)
}

func (ds *DataSet) GetUnicodeString(t tag.Identifier, i int) (string, error) {
	return get(ds, t, i, handlers.Reading.GetUnicodeString)
}

func (ds *DataSet) GetUnicodeStringDefault(t tag.Identifier, i int, def string) (string, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetUnicodeString)
}

func (ds *DataSet) GetInt64(t tag.Identifier, i int) (int64, error) {
	return get(ds, t, i, handlers.Reading.GetInt64)
}

func (ds *DataSet) GetInt64Default(t tag.Identifier, i int, def int64) (int64, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetInt64)
}

func (ds *DataSet) GetUint64(t tag.Identifier, i int) (uint64, error) {
	return get(ds, t, i, handlers.Reading.GetUint64)
}

func (ds *DataSet) GetUint64Default(t tag.Identifier, i int, def uint64) (uint64, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetUint64)
}

func (ds *DataSet) GetInt32(t tag.Identifier, i int) (int32, error) {
	return get(ds, t, i, handlers.Reading.GetInt32)
}

func (ds *DataSet) GetInt32Default(t tag.Identifier, i int, def int32) (int32, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetInt32)
}

func (ds *DataSet) GetUint32(t tag.Identifier, i int) (uint32, error) {
	return get(ds, t, i, handlers.Reading.GetUint32)
}

func (ds *DataSet) GetUint32Default(t tag.Identifier, i int, def uint32) (uint32, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetUint32)
}

func (ds *DataSet) GetInt16(t tag.Identifier, i int) (int16, error) {
	return get(ds, t, i, handlers.Reading.GetInt16)
}

func (ds *DataSet) GetInt16Default(t tag.Identifier, i int, def int16) (int16, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetInt16)
}

func (ds *DataSet) GetUint16(t tag.Identifier, i int) (uint16, error) {
	return get(ds, t, i, handlers.Reading.GetUint16)
}

func (ds *DataSet) GetUint16Default(t tag.Identifier, i int, def uint16) (uint16, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetUint16)
}

func (ds *DataSet) GetInt8(t tag.Identifier, i int) (int8, error) {
	return get(ds, t, i, handlers.Reading.GetInt8)
}

func (ds *DataSet) GetInt8Default(t tag.Identifier, i int, def int8) (int8, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetInt8)
}

func (ds *DataSet) GetUint8(t tag.Identifier, i int) (uint8, error) {
	return get(ds, t, i, handlers.Reading.GetUint8)
}

func (ds *DataSet) GetUint8Default(t tag.Identifier, i int, def uint8) (uint8, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetUint8)
}

func (ds *DataSet) GetDouble(t tag.Identifier, i int) (float64, error) {
	return get(ds, t, i, handlers.Reading.GetDouble)
}

func (ds *DataSet) GetDoubleDefault(t tag.Identifier, i int, def float64) (float64, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetDouble)
}

func (ds *DataSet) GetFloat(t tag.Identifier, i int) (float32, error) {
	return get(ds, t, i, handlers.Reading.GetFloat)
}

func (ds *DataSet) GetFloatDefault(t tag.Identifier, i int, def float32) (float32, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetFloat)
}

func (ds *DataSet) GetDate(t tag.Identifier, i int) (handlers.Date, error) {
	return get(ds, t, i, handlers.Reading.GetDate)
}

func (ds *DataSet) GetDateDefault(t tag.Identifier, i int, def handlers.Date) (handlers.Date, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetDate)
}

func (ds *DataSet) GetAge(t tag.Identifier, i int) (handlers.Age, error) {
	return get(ds, t, i, handlers.Reading.GetAge)
}

func (ds *DataSet) GetAgeDefault(t tag.Identifier, i int, def handlers.Age) (handlers.Age, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetAge)
}

func (ds *DataSet) GetPatientName(t tag.Identifier, i int) (handlers.PersonName, error) {
	return get(ds, t, i, handlers.Reading.GetPatientName)
}

func (ds *DataSet) GetPatientNameDefault(t tag.Identifier, i int, def handlers.PersonName) (handlers.PersonName, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetPatientName)
}

func (ds *DataSet) GetUnicodePatientName(t tag.Identifier, i int) (handlers.PersonName, error) {
	return get(ds, t, i, handlers.Reading.GetUnicodePatientName)
}

func (ds *DataSet) GetUnicodePatientNameDefault(t tag.Identifier, i int, def handlers.PersonName) (handlers.PersonName, error) {
	return getDefault(ds, t, i, def, handlers.Reading.GetUnicodePatientName)
}

// GetStrings returns every value of buffer 0
func (ds *DataSet) GetStrings(t tag.Identifier) ([]string, error) {
	h, err := ds.ReadingHandler(t, 0)
	if err != nil {
		return nil, err
	}
	out := make([]string, h.Size())
	for i := range out {
		if out[i], err = h.GetUnicodeString(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetDoubles returns every value of buffer 0
func (ds *DataSet) GetDoubles(t tag.Identifier) ([]float64, error) {
	h, err := ds.ReadingHandler(t, 0)
	if err != nil {
		return nil, err
	}
	out := make([]float64, h.Size())
	for i := range out {
		if out[i], err = h.GetDouble(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (ds *DataSet) SetString(t tag.Identifier, v string) error {
	return set(ds, t, v, handlers.Writing.SetString)
}

func (ds *DataSet) SetUnicodeString(t tag.Identifier, v string) error {
	return set(ds, t, v, handlers.Writing.SetUnicodeString)
}

func (ds *DataSet) SetInt64(t tag.Identifier, v int64) error {
	return set(ds, t, v, handlers.Writing.SetInt64)
}

func (ds *DataSet) SetUint64(t tag.Identifier, v uint64) error {
	return set(ds, t, v, handlers.Writing.SetUint64)
}

func (ds *DataSet) SetInt32(t tag.Identifier, v int32) error {
	return set(ds, t, v, handlers.Writing.SetInt32)
}

func (ds *DataSet) SetUint32(t tag.Identifier, v uint32) error {
	return set(ds, t, v, handlers.Writing.SetUint32)
}

func (ds *DataSet) SetInt16(t tag.Identifier, v int16) error {
	return set(ds, t, v, handlers.Writing.SetInt16)
}

func (ds *DataSet) SetUint16(t tag.Identifier, v uint16) error {
	return set(ds, t, v, handlers.Writing.SetUint16)
}

func (ds *DataSet) SetInt8(t tag.Identifier, v int8) error {
	return set(ds, t, v, handlers.Writing.SetInt8)
}

func (ds *DataSet) SetUint8(t tag.Identifier, v uint8) error {
	return set(ds, t, v, handlers.Writing.SetUint8)
}

func (ds *DataSet) SetDouble(t tag.Identifier, v float64) error {
	return set(ds, t, v, handlers.Writing.SetDouble)
}

func (ds *DataSet) SetFloat(t tag.Identifier, v float32) error {
	return set(ds, t, v, handlers.Writing.SetFloat)
}

func (ds *DataSet) SetDate(t tag.Identifier, v handlers.Date) error {
	return set(ds, t, v, handlers.Writing.SetDate)
}

func (ds *DataSet) SetAge(t tag.Identifier, v handlers.Age) error {
	return set(ds, t, v, handlers.Writing.SetAge)
}

func (ds *DataSet) SetPatientName(t tag.Identifier, v handlers.PersonName) error {
	return set(ds, t, v, handlers.Writing.SetPatientName)
}

func (ds *DataSet) SetUnicodePatientName(t tag.Identifier, v handlers.PersonName) error {
	return set(ds, t, v, handlers.Writing.SetUnicodePatientName)
}

// SetStrings replaces buffer 0 with several values
func (ds *DataSet) SetStrings(t tag.Identifier, values ...string) error {
	w, err := ds.WritingHandler(t, 0, "")
	if err != nil {
		return err
	}
	for i, v := range values {
		if err := w.SetUnicodeString(i, v); err != nil {
			return err
		}
	}
	return w.Commit()
}

// SetDoubles replaces buffer 0 with several values
func (ds *DataSet) SetDoubles(t tag.Identifier, values ...float64) error {
	w, err := ds.WritingHandler(t, 0, "")
	if err != nil {
		return err
	}
	for i, v := range values {
		if err := w.SetDouble(i, v); err != nil {
			return err
		}
	}
	return w.Commit()
}
