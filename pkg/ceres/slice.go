package ceres

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ceres-project/ceres/pkg/mathutil"
)

// MaxSliceGap is the largest run of missing records a single write may
// splice into an existing slice before a new slice is started instead.
const MaxSliceGap = 80

const sliceFileMode = 0o644

const recordSize = 8 // bytes per big-endian float64 record

// Slice is a single fixed-step binary file of consecutive big-endian
// float64 records, named "<startTime>@<timeStep>.slice" inside its node's
// directory.
type Slice struct {
	fsPath    string
	startTime int64
	timeStep  int64
}

func sliceFilename(startTime, timeStep int64) string {
	return fmt.Sprintf("%d@%d.slice", startTime, timeStep)
}

// parseSliceFilename parses "<startTime>@<timeStep>.slice", returning false
// if name doesn't match that shape.
func parseSliceFilename(name string) (startTime, timeStep int64, ok bool) {
	const suffix = ".slice"
	if !strings.HasSuffix(name, suffix) {
		return 0, 0, false
	}

	stem := strings.TrimSuffix(name, suffix)

	at := strings.IndexByte(stem, '@')
	if at < 0 {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(stem[:at], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	step, err := strconv.ParseInt(stem[at+1:], 10, 64)
	if err != nil || step <= 0 {
		return 0, 0, false
	}

	return start, step, true
}

func newSlice(nodeDir string, startTime, timeStep int64) *Slice {
	return &Slice{
		fsPath:    filepath.Join(nodeDir, sliceFilename(startTime, timeStep)),
		startTime: startTime,
		timeStep:  timeStep,
	}
}

// createSlice atomically creates an empty slice file for nodeDir at
// startTime/timeStep.
func createSlice(nodeDir string, startTime, timeStep int64) (*Slice, error) {
	s := newSlice(nodeDir, startTime, timeStep)

	f, err := os.OpenFile(s.fsPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, sliceFileMode)
	if err != nil {
		return nil, fmt.Errorf("ceres: create slice %s: %w", s.fsPath, err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("ceres: create slice %s: %w", s.fsPath, err)
	}

	return s, nil
}

// StartTime returns the slice's logical start time.
func (s *Slice) StartTime() int64 { return s.startTime }

// TimeStep returns the slice's step, in seconds.
func (s *Slice) TimeStep() int64 { return s.timeStep }

// fileSize returns the current on-disk size, or an error wrapping
// errSliceDeleted if the file is absent.
func (s *Slice) fileSize() (int64, error) {
	info, err := os.Stat(s.fsPath)
	if os.IsNotExist(err) {
		return 0, errSliceDeleted
	}

	if err != nil {
		return 0, fmt.Errorf("ceres: stat slice %s: %w", s.fsPath, err)
	}

	return info.Size(), nil
}

// EndTime returns the slice's exclusive end time, derived from its current
// file size.
func (s *Slice) EndTime() (int64, error) {
	size, err := s.fileSize()
	if err != nil {
		return 0, err
	}

	return s.startTime + (size/recordSize)*s.timeStep, nil
}

// IsEmpty reports whether the slice file currently holds zero records.
func (s *Slice) IsEmpty() (bool, error) {
	size, err := s.fileSize()
	if err != nil {
		return false, err
	}

	return size == 0, nil
}

func packRecord(buf *bytes.Buffer, v Sample) {
	value := math.NaN()
	if v.Valid {
		value = v.Value
	}

	bits := math.Float64bits(value)

	var raw [recordSize]byte

	binary.BigEndian.PutUint64(raw[:], bits)
	buf.Write(raw[:])
}

func unpackRecord(raw []byte) Sample {
	bits := binary.BigEndian.Uint64(raw)
	value := math.Float64frombits(bits)

	if math.IsNaN(value) {
		return MissingSample()
	}

	return ValueSample(value)
}

// Read returns the series covering [from, until) as actually stored on
// disk, which may be shorter than requested when the slice ends first.
func (s *Slice) Read(from, until int64) (*TimeSeriesData, error) {
	off := from - s.startTime
	if off < 0 {
		return nil, fmt.Errorf("ceres: read slice %s at %d: %w", s.fsPath, from, ErrInvalidRequest)
	}

	byteOffset := (off / s.timeStep) * recordSize

	size, err := s.fileSize()
	if err != nil {
		return nil, err
	}

	if byteOffset >= size {
		return nil, fmt.Errorf("ceres: read slice %s at %d: %w", s.fsPath, from, ErrNoData)
	}

	want := mathutil.Min(((until-from)/s.timeStep)*recordSize, size-byteOffset)

	f, err := os.Open(s.fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errSliceDeleted
		}

		return nil, fmt.Errorf("ceres: open slice %s: %w", s.fsPath, err)
	}
	defer f.Close()

	raw := make([]byte, want)

	n, err := f.ReadAt(raw, byteOffset)
	if err != nil && n == 0 {
		return nil, fmt.Errorf("ceres: read slice %s: %w", s.fsPath, err)
	}

	raw = raw[:n-(n%recordSize)]

	values := make([]Sample, len(raw)/recordSize)
	for i := range values {
		values[i] = unpackRecord(raw[i*recordSize : (i+1)*recordSize])
	}

	return &TimeSeriesData{
		StartTime: from,
		EndTime:   from + int64(len(values))*s.timeStep,
		TimeStep:  s.timeStep,
		Values:    values,
	}, nil
}

// Write appends or overwrites sequence starting at sequence[0].t, which
// must be aligned to timeStep and >= s.startTime. sequence must be
// non-empty with strictly increasing timestamps spaced exactly timeStep
// apart.
func (s *Slice) Write(sequence []TimestampedSample) error {
	if len(sequence) == 0 {
		return nil
	}

	off := sequence[0].Timestamp - s.startTime
	byteOffset := (off / s.timeStep) * recordSize

	size, err := s.fileSize()
	if err != nil {
		return err
	}

	gap := byteOffset - size

	var buf bytes.Buffer

	if gap > 0 {
		missing := gap / recordSize
		if missing > MaxSliceGap {
			return errSliceGapTooLarge
		}

		for i := int64(0); i < missing; i++ {
			packRecord(&buf, MissingSample())
		}

		byteOffset = size
	}

	for _, ts := range sequence {
		packRecord(&buf, ValueSample(ts.Value))
	}

	f, err := os.OpenFile(s.fsPath, os.O_WRONLY, sliceFileMode)
	if err != nil {
		if os.IsNotExist(err) {
			return errSliceDeleted
		}

		return fmt.Errorf("ceres: open slice %s for write: %w", s.fsPath, err)
	}
	defer f.Close()

	if _, err := f.WriteAt(buf.Bytes(), byteOffset); err != nil {
		return fmt.Errorf("ceres: write slice %s: %w", s.fsPath, err)
	}

	return nil
}

// deleteBeforeResult reports what deleteBefore did, so the owning Node can
// decide whether to drop the slice from its list or rename it in place.
type deleteBeforeResult struct {
	deleted     bool
	newFsPath   string
	newStart    int64
}

// DeleteBefore truncates all records strictly before t, renaming the slice
// file to reflect its new logical start time. If nothing remains, the file
// is unlinked and deleted is reported true.
func (s *Slice) DeleteBefore(t int64) (deleteBeforeResult, error) {
	newStart := t
	if t%s.timeStep != 0 {
		newStart = (t/s.timeStep + 1) * s.timeStep
	}

	byteOffset := (newStart - s.startTime) / s.timeStep * recordSize
	if byteOffset <= 0 {
		return deleteBeforeResult{}, nil
	}

	f, err := os.OpenFile(s.fsPath, os.O_RDWR, sliceFileMode)
	if err != nil {
		if os.IsNotExist(err) {
			return deleteBeforeResult{}, errSliceDeleted
		}

		return deleteBeforeResult{}, fmt.Errorf("ceres: open slice %s: %w", s.fsPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return deleteBeforeResult{}, fmt.Errorf("ceres: stat slice %s: %w", s.fsPath, err)
	}

	size := info.Size()
	if byteOffset >= size {
		if err := os.Remove(s.fsPath); err != nil {
			return deleteBeforeResult{}, fmt.Errorf("ceres: remove slice %s: %w", s.fsPath, err)
		}

		return deleteBeforeResult{deleted: true}, nil
	}

	tail := make([]byte, size-byteOffset)
	if _, err := f.ReadAt(tail, byteOffset); err != nil {
		return deleteBeforeResult{}, fmt.Errorf("ceres: read slice %s tail: %w", s.fsPath, err)
	}

	if _, err := f.WriteAt(tail, 0); err != nil {
		return deleteBeforeResult{}, fmt.Errorf("ceres: rewrite slice %s: %w", s.fsPath, err)
	}

	if err := f.Truncate(int64(len(tail))); err != nil {
		return deleteBeforeResult{}, fmt.Errorf("ceres: truncate slice %s: %w", s.fsPath, err)
	}

	newPath := filepath.Join(filepath.Dir(s.fsPath), sliceFilename(newStart, s.timeStep))
	if err := os.Rename(s.fsPath, newPath); err != nil {
		return deleteBeforeResult{}, fmt.Errorf("ceres: rename slice %s: %w", s.fsPath, err)
	}

	s.fsPath = newPath
	s.startTime = newStart

	return deleteBeforeResult{newFsPath: newPath, newStart: newStart}, nil
}

// TimestampedSample is one (timestamp, value) input pair to Slice.Write /
// Node.Write; value is always present (missing points are dropped before
// reaching a slice, per Node's compaction step).
type TimestampedSample struct {
	Timestamp int64
	Value     float64
}
