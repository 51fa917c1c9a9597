package ceres

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ceres-project/ceres/pkg/mathutil"
)

// DataPoint is one input sample to Node.Write. Valid false represents a
// missing value and is dropped during compaction.
type DataPoint struct {
	Timestamp int64
	Value     float64
	Valid     bool
}

// Point constructs a present DataPoint.
func Point(timestamp int64, value float64) DataPoint {
	return DataPoint{Timestamp: timestamp, Value: value, Valid: true}
}

// SliceInfo is a diagnostic summary of one of a node's slices, returned by
// Node.SliceInfo in enumeration order (newest-first).
type SliceInfo struct {
	StartTime int64
	EndTime   int64
	TimeStep  int64
}

// Node is a single metric's directory within a Tree: its metadata document
// plus zero or more slice files.
type Node struct {
	tree   *Tree
	name   string
	fsPath string

	timeStep   int64
	metaLoaded bool

	cacheBehavior CacheBehavior
	cacheValid    bool
	cachedSlices  []*Slice
	latestCached  *Slice
}

func newNode(tree *Tree, name, fsPath string) *Node {
	return &Node{
		tree:          tree,
		name:          name,
		fsPath:        fsPath,
		cacheBehavior: DefaultSliceCachingBehavior(),
	}
}

// Name returns the node's dotted metric name.
func (n *Node) Name() string { return n.name }

// FsPath returns the node's directory on disk.
func (n *Node) FsPath() string { return n.fsPath }

// createNode materialises a node directory under tree at name, merging
// properties with {timeStep: DefaultTimeStep} when timeStep is absent.
func createNode(tree *Tree, name, fsPath string, properties map[string]any) (*Node, error) {
	if err := os.MkdirAll(fsPath, 0o755); err != nil {
		return nil, fmt.Errorf("ceres: create node %s: %w", name, err)
	}

	meta := Metadata{TimeStep: DefaultTimeStep, Properties: map[string]any{}}

	for k, v := range properties {
		switch k {
		case "timeStep":
			if step, ok := toInt64(v); ok && step > 0 {
				meta.TimeStep = step
			}
		case "retentions":
			if r, ok := v.([]Retention); ok {
				meta.Retentions = r
			}
		default:
			meta.Properties[k] = v
		}
	}

	if err := writeMetadata(fsPath, meta); err != nil {
		return nil, err
	}

	node := newNode(tree, name, fsPath)
	node.timeStep = meta.TimeStep
	node.metaLoaded = true

	return node, nil
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

// ReadMetadata loads the node's metadata document from disk.
func (n *Node) ReadMetadata() (Metadata, error) {
	meta, err := readMetadata(n.fsPath)
	if err != nil {
		return Metadata{}, err
	}

	n.timeStep = meta.TimeStep
	n.metaLoaded = true

	return meta, nil
}

// WriteMetadata persists meta, replacing the node's current document.
func (n *Node) WriteMetadata(meta Metadata) error {
	if err := writeMetadata(n.fsPath, meta); err != nil {
		return err
	}

	n.timeStep = meta.TimeStep
	n.metaLoaded = true

	return nil
}

func (n *Node) ensureTimeStep() (int64, error) {
	if n.metaLoaded {
		return n.timeStep, nil
	}

	meta, err := n.ReadMetadata()
	if err != nil {
		return 0, err
	}

	return meta.TimeStep, nil
}

// SetSliceCachingBehavior changes the node's caching policy. Not
// concurrency-safe; callers must externally serialise.
func (n *Node) SetSliceCachingBehavior(b CacheBehavior) {
	n.cacheBehavior = b
	n.ClearSliceCache()
}

// ClearSliceCache drops any cached slice enumeration.
func (n *Node) ClearSliceCache() {
	n.cacheValid = false
	n.cachedSlices = nil
	n.latestCached = nil
}

// listSlicesFromDisk enumerates the node's slice files, newest-first.
func (n *Node) listSlicesFromDisk() ([]*Slice, error) {
	entries, err := os.ReadDir(n.fsPath)
	if os.IsNotExist(err) {
		return nil, ErrNodeDeleted
	}

	if err != nil {
		return nil, fmt.Errorf("ceres: list slices for %s: %w", n.name, err)
	}

	var slices []*Slice

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".slice" {
			continue
		}

		start, step, ok := parseSliceFilename(e.Name())
		if !ok {
			return nil, newCorruptNodeError(n.fsPath, fmt.Sprintf("unparseable slice filename %q", e.Name()))
		}

		slices = append(slices, newSlice(n.fsPath, start, step))
	}

	sort.Slice(slices, func(i, j int) bool {
		return slices[i].startTime > slices[j].startTime
	})

	return slices, nil
}

// Slices returns the node's current slice set, newest-first, honoring the
// node's caching policy.
func (n *Node) Slices() ([]*Slice, error) {
	switch n.cacheBehavior {
	case CacheAll:
		if n.cacheValid {
			return n.cachedSlices, nil
		}

		slices, err := n.listSlicesFromDisk()
		if err != nil {
			return nil, err
		}

		n.cachedSlices = slices
		n.cacheValid = true

		return slices, nil

	case CacheLatest:
		slices, err := n.listSlicesFromDisk()
		if err != nil {
			return nil, err
		}

		if len(slices) > 0 {
			n.latestCached = slices[0]
		}

		return slices, nil

	default: // CacheNone
		return n.listSlicesFromDisk()
	}
}

// HasDataForInterval reports whether the union of the node's slice spans
// intersects [from, until). A zero from/until means open-left/open-right.
func (n *Node) HasDataForInterval(from, until int64) (bool, error) {
	slices, err := n.Slices()
	if err != nil {
		return false, err
	}

	if len(slices) == 0 {
		return false, nil
	}

	latestDataEnd, err := slices[0].EndTime()
	if err != nil {
		return false, err
	}

	earliestData := slices[len(slices)-1].startTime

	condFrom := from == 0 || from < latestDataEnd
	condUntil := until == 0 || until > earliestData

	return condFrom && condUntil, nil
}

func floorTo(t, step int64) int64 {
	return t - (t % step)
}

// compact drops missing points, sorts by timestamp, floors to timeStep,
// collapses duplicate floored timestamps keeping the first occurrence, and
// segments the result into maximal contiguous runs.
func compact(points []DataPoint, timeStep int64) [][]TimestampedSample {
	present := make([]DataPoint, 0, len(points))

	for _, p := range points {
		if p.Valid {
			present = append(present, p)
		}
	}

	sort.SliceStable(present, func(i, j int) bool {
		return present[i].Timestamp < present[j].Timestamp
	})

	deduped := make([]TimestampedSample, 0, len(present))

	var lastTS int64

	haveLast := false

	for _, p := range present {
		ts := floorTo(p.Timestamp, timeStep)
		if haveLast && ts == lastTS {
			continue
		}

		deduped = append(deduped, TimestampedSample{Timestamp: ts, Value: p.Value})
		lastTS = ts
		haveLast = true
	}

	var runs [][]TimestampedSample

	for _, d := range deduped {
		if len(runs) == 0 {
			runs = append(runs, []TimestampedSample{d})
			continue
		}

		last := runs[len(runs)-1]
		if d.Timestamp == last[len(last)-1].Timestamp+timeStep {
			runs[len(runs)-1] = append(last, d)
		} else {
			runs = append(runs, []TimestampedSample{d})
		}
	}

	return runs
}

// Write compacts datapoints into contiguous runs and dispatches each run to
// the slice(s) that own its timestamps, creating new slices as needed.
func (n *Node) Write(datapoints []DataPoint) error {
	timeStep, err := n.ensureTimeStep()
	if err != nil {
		return err
	}

	runs := compact(datapoints, timeStep)

	// Process newest-first, as a stack.
	stack := make([][]TimestampedSample, len(runs))
	copy(stack, runs)

	for len(stack) > 0 {
		seq := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := n.writeSequence(seq, timeStep, &stack); err != nil {
			return err
		}
	}

	return nil
}

func (n *Node) writeSequence(seq []TimestampedSample, timeStep int64, stack *[][]TimestampedSample) error {
	if len(seq) == 0 {
		return nil
	}

	restarted, err := n.writeSequenceOnce(seq, timeStep, stack)
	if err != nil || !restarted {
		return err
	}

	// A slice disappeared mid-write: retry once against a fresh listing.
	restarted, err = n.writeSequenceOnce(seq, timeStep, stack)
	if err != nil {
		return err
	}

	if restarted {
		return fmt.Errorf("ceres: write %s: %w", n.name, errSliceDeleted)
	}

	return nil
}

// writeSequenceOnce performs a single dispatch pass over the node's current
// slice list. It reports restarted=true when a slice disappeared mid-write
// (errSliceDeleted), signalling the caller to re-enumerate and retry the
// whole sequence from scratch.
func (n *Node) writeSequenceOnce(seq []TimestampedSample, timeStep int64, stack *[][]TimestampedSample) (bool, error) {
	slices, err := n.Slices()
	if err != nil {
		return false, err
	}

	var sliceBoundary int64

	haveBoundary := false
	remaining := seq
	homed := false

	for _, s := range slices {
		if s.timeStep != timeStep {
			continue
		}

		switch {
		case remaining[0].Timestamp >= s.startTime:
			prefix := remaining

			if haveBoundary {
				cut := len(prefix)

				for i, p := range prefix {
					if p.Timestamp >= sliceBoundary {
						cut = i
						break
					}
				}

				if cut < len(prefix) {
					suffix := prefix[cut:]
					prefix = prefix[:cut]

					if len(suffix) > 0 {
						*stack = append(*stack, suffix)
					}
				}
			}

			if len(prefix) == 0 {
				homed = true
				break
			}

			err := s.Write(prefix)
			if err == errSliceGapTooLarge {
				newS, cerr := createSlice(n.fsPath, prefix[0].Timestamp, timeStep)
				if cerr != nil {
					return false, cerr
				}

				if werr := newS.Write(prefix); werr != nil {
					return false, werr
				}

				n.ClearSliceCache()
			} else if err == errSliceDeleted {
				n.ClearSliceCache()

				return true, nil
			} else if err != nil {
				return false, err
			}

			homed = true

		case remaining[len(remaining)-1].Timestamp >= s.startTime:
			cut := len(remaining)

			for i, p := range remaining {
				if p.Timestamp >= s.startTime {
					cut = i
					break
				}
			}

			suffixSeq := remaining[cut:]
			prefixSeq := remaining[:cut]

			if len(suffixSeq) > 0 {
				if err := s.Write(suffixSeq); err != nil {
					if err == errSliceDeleted {
						n.ClearSliceCache()

						return true, nil
					}

					return false, err
				}
			}

			if len(prefixSeq) > 0 {
				*stack = append(*stack, prefixSeq)
			}

			homed = true

		default:
			// sequence predates this slice entirely; keep scanning older slices.
		}

		sliceBoundary = s.startTime
		haveBoundary = true

		if homed {
			break
		}
	}

	if !homed {
		newS, err := createSlice(n.fsPath, remaining[0].Timestamp, timeStep)
		if err != nil {
			return false, err
		}

		if err := newS.Write(remaining); err != nil {
			return false, err
		}

		n.ClearSliceCache()
	}

	return false, nil
}

// Read returns the series covering [from, until), stitched from whichever
// slices overlap the request, downsampled to the coarsest overlapping step.
func (n *Node) Read(from, until int64) (*TimeSeriesData, error) {
	timeStep, err := n.ensureTimeStep()
	if err != nil {
		return nil, err
	}

	from = floorTo(from, timeStep)
	until = floorTo(until, timeStep)

	slices, err := n.Slices()
	if err != nil {
		return nil, err
	}

	outputStep, err := n.chooseOutputStep(slices, from, until, timeStep)
	if err != nil {
		return nil, err
	}

	selected := selectSlices(slices, from, until)

	var accumulator *TimeSeriesData

	var sliceBoundary int64

	haveBoundary := false

	for _, s := range selected {
		reqFrom := mathutil.Max(from, s.startTime)

		end, err := s.EndTime()
		if err != nil {
			return nil, err
		}

		reqUntil := mathutil.Min(until, end)

		if haveBoundary {
			reqUntil = mathutil.Min(reqUntil, sliceBoundary)
		}

		sliceBoundary = s.startTime
		haveBoundary = true

		if reqFrom >= reqUntil {
			continue
		}

		piece, err := s.Read(reqFrom, reqUntil)
		if err == ErrNoData {
			break
		}

		if err != nil {
			return nil, err
		}

		if s.timeStep < outputStep {
			piece = &TimeSeriesData{
				StartTime: piece.StartTime,
				EndTime:   piece.EndTime,
				TimeStep:  outputStep,
				Values:    downsample(piece.Values, s.timeStep, outputStep),
			}
		}

		if piece.EndTime < reqUntil {
			padCount := int((reqUntil - piece.EndTime) / outputStep)
			for i := 0; i < padCount; i++ {
				piece.Values = append(piece.Values, MissingSample())
			}

			piece.EndTime = reqUntil
		}

		if accumulator == nil {
			accumulator = piece
			continue
		}

		if piece.StartTime < accumulator.StartTime {
			if err := piece.Merge(accumulator); err != nil {
				return nil, err
			}

			accumulator = piece
		} else {
			if err := accumulator.Merge(piece); err != nil {
				return nil, err
			}
		}
	}

	if accumulator == nil {
		return missingSeries(from, until, outputStep), nil
	}

	if accumulator.StartTime > from {
		leftPad := int((accumulator.StartTime - from) / outputStep)
		values := make([]Sample, leftPad, leftPad+len(accumulator.Values))

		for i := range values {
			values[i] = MissingSample()
		}

		accumulator.Values = append(values, accumulator.Values...)
		accumulator.StartTime = from
	}

	return accumulator, nil
}

func (n *Node) chooseOutputStep(slices []*Slice, from, until, nodeStep int64) (int64, error) {
	var outputStep int64 = 1

	for _, s := range slices {
		if from >= s.startTime {
			if s.timeStep > outputStep {
				outputStep = s.timeStep
			}

			break
		}

		if until >= s.startTime && s.timeStep > outputStep {
			outputStep = s.timeStep
		}
	}

	if outputStep != 1 {
		return outputStep, nil
	}

	meta, err := n.ReadMetadata()
	if err != nil || len(meta.Retentions) == 0 {
		return nodeStep, nil
	}

	now := time.Now().Unix()
	biggest := nodeStep

	var horizon int64

	for _, r := range meta.Retentions {
		horizon += int64(r.Step) * int64(r.Count)

		if until > now-horizon {
			break
		}

		biggest = int64(r.Step)
	}

	return biggest, nil
}

// selectSlices drops any slice strictly contained inside another and any
// slice wholly outside [from, until), returning the remainder newest-first.
func selectSlices(slices []*Slice, from, until int64) []*Slice {
	type span struct {
		s        *Slice
		endGuess int64
	}

	spans := make([]span, 0, len(slices))

	for _, s := range slices {
		end, err := s.EndTime()
		if err != nil {
			continue
		}

		if end <= from || s.startTime >= until {
			continue
		}

		spans = append(spans, span{s: s, endGuess: end})
	}

	var out []*Slice

	for i, sp := range spans {
		contained := false

		for j, other := range spans {
			if i == j {
				continue
			}

			if other.s.startTime <= sp.s.startTime && sp.endGuess <= other.endGuess && j < i {
				contained = true

				break
			}
		}

		if !contained {
			out = append(out, sp.s)
		}
	}

	return out
}

// SliceInfo returns a diagnostic summary of every slice, in enumeration order.
func (n *Node) SliceInfo() ([]SliceInfo, error) {
	slices, err := n.Slices()
	if err != nil {
		return nil, err
	}

	infos := make([]SliceInfo, 0, len(slices))

	for _, s := range slices {
		end, err := s.EndTime()
		if err != nil {
			return nil, err
		}

		infos = append(infos, SliceInfo{StartTime: s.startTime, EndTime: end, TimeStep: s.timeStep})
	}

	return infos, nil
}
