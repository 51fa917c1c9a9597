package ceres

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ceres-project/ceres/pkg/alg/lru"
)

// TreeMarker is the directory name identifying a tree's root.
const TreeMarker = ".ceres-tree"

// DefaultNodeCacheCapacity bounds the Tree's name→Node memoisation cache. It
// is a supplement over the reference implementation's unbounded dict: large
// enough that no observable behaviour changes for ordinary trees, but it
// keeps a long-lived process walking a huge tree from leaking Node values
// forever.
const DefaultNodeCacheCapacity = 8192

// Tree roots a hierarchy of Ceres nodes at a filesystem path.
type Tree struct {
	root      string
	nodeCache *lru.Cache[string, *Node]
}

// CreateTree materialises the tree-marker directory at root, writing each
// property to its own file inside it (file name = property name, body =
// stringified value).
func CreateTree(root string, properties map[string]string) (*Tree, error) {
	markerDir := filepath.Join(root, TreeMarker)

	if err := os.MkdirAll(markerDir, 0o755); err != nil {
		return nil, fmt.Errorf("ceres: create tree %s: %w", root, err)
	}

	for k, v := range properties {
		path := filepath.Join(markerDir, k)
		if err := os.WriteFile(path, []byte(v), 0o644); err != nil {
			return nil, fmt.Errorf("ceres: write tree property %s: %w", k, err)
		}
	}

	return newTree(root), nil
}

func newTree(root string) *Tree {
	return &Tree{
		root: root,
		nodeCache: lru.New(
			lru.WithMaxEntries[string, *Node](DefaultNodeCacheCapacity),
			lru.WithBloomFilter[string, *Node](func(k string) []byte { return []byte(k) }, DefaultNodeCacheCapacity),
		),
	}
}

// isTreeRoot reports whether dir contains a tree marker directory.
func isTreeRoot(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, TreeMarker))
	return err == nil && info.IsDir()
}

// IsTreeRoot reports whether root is a Ceres tree root.
func IsTreeRoot(root string) bool {
	return isTreeRoot(root)
}

// OpenTree opens an existing tree at root, failing if no tree marker is present.
func OpenTree(root string) (*Tree, error) {
	if !isTreeRoot(root) {
		return nil, fmt.Errorf("ceres: %s is not a tree root", root)
	}

	return newTree(root), nil
}

// Root returns the tree's filesystem root.
func (t *Tree) Root() string { return t.root }

// nameToPath converts a dotted metric name to its node directory.
func (t *Tree) nameToPath(name string) string {
	return filepath.Join(t.root, filepath.Join(strings.Split(name, ".")...))
}

// pathToName converts a node directory back to its dotted metric name.
func (t *Tree) pathToName(path string) (string, error) {
	rel, err := filepath.Rel(t.root, path)
	if err != nil {
		return "", fmt.Errorf("ceres: %s is not under tree root %s: %w", path, t.root, err)
	}

	return strings.ReplaceAll(rel, string(filepath.Separator), "."), nil
}

// isNodeDir reports whether dir contains a node metadata file.
func isNodeDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, metadataBasename+".json"))
	return err == nil
}

// CreateNode creates a node for name with the given properties, merging in
// {timeStep: DefaultTimeStep} when absent.
func (t *Tree) CreateNode(name string, properties map[string]any) (*Node, error) {
	fsPath := t.nameToPath(name)

	node, err := createNode(t, name, fsPath, properties)
	if err != nil {
		return nil, err
	}

	t.nodeCache.Put(name, node)

	return node, nil
}

// GetNode returns the memoised Node for name, or ErrNodeNotFound if name is
// not a node directory.
func (t *Tree) GetNode(name string) (*Node, error) {
	if cached, ok := t.nodeCache.Get(name); ok {
		return cached, nil
	}

	fsPath := t.nameToPath(name)
	if !isNodeDir(fsPath) {
		return nil, ErrNodeNotFound
	}

	node := newNode(t, name, fsPath)
	t.nodeCache.Put(name, node)

	return node, nil
}

// Store delegates to the named node's Write, failing with ErrNodeNotFound
// when name is unknown.
func (t *Tree) Store(name string, datapoints []DataPoint) error {
	node, err := t.GetNode(name)
	if err != nil {
		return err
	}

	return node.Write(datapoints)
}

// Fetch delegates to the named node's Read, failing with ErrNodeNotFound
// when name is unknown.
func (t *Tree) Fetch(name string, from, until int64) (*TimeSeriesData, error) {
	node, err := t.GetNode(name)
	if err != nil {
		return nil, err
	}

	return node.Read(from, until)
}

// Walk visits every node directory under the tree root, calling fn for each.
func (t *Tree) Walk(fn func(*Node) error) error {
	return filepath.WalkDir(t.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() || path == t.root || d.Name() == TreeMarker {
			return nil
		}

		if !isNodeDir(path) {
			return nil
		}

		name, err := t.pathToName(path)
		if err != nil {
			return err
		}

		return fn(newNode(t, name, path))
	})
}

// Find translates a dotted pattern (dots replaced by path separators) into
// a filesystem glob and yields every matching node directory, filtered by
// data availability in [from, until) when either bound is non-zero.
func (t *Tree) Find(pattern string, from, until int64) ([]*Node, error) {
	globPattern := filepath.Join(t.root, filepath.Join(strings.Split(pattern, ".")...))

	matches, err := filepath.Glob(globPattern)
	if err != nil {
		return nil, fmt.Errorf("ceres: find %q: %w", pattern, err)
	}

	var nodes []*Node

	for _, m := range matches {
		if !isNodeDir(m) {
			continue
		}

		name, err := t.pathToName(m)
		if err != nil {
			return nil, err
		}

		node := newNode(t, name, m)

		if from != 0 || until != 0 {
			ok, err := node.HasDataForInterval(from, until)
			if err != nil {
				return nil, err
			}

			if !ok {
				continue
			}
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

// FromFilesystemPath walks upward from fsPath until a tree marker is found
// and returns the owning Tree plus the Node for fsPath, for tooling that
// discovers a node directory first and needs to resolve its tree.
func FromFilesystemPath(fsPath string) (*Tree, *Node, error) {
	abs, err := filepath.Abs(fsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("ceres: resolve %s: %w", fsPath, err)
	}

	root, err := findTreeRoot(abs)
	if err != nil {
		return nil, nil, err
	}

	tree := newTree(root)

	name, err := tree.pathToName(abs)
	if err != nil {
		return nil, nil, err
	}

	if !isNodeDir(abs) {
		return tree, nil, nil
	}

	return tree, newNode(tree, name, abs), nil
}

// GetTree walks upward from an arbitrary path looking for a tree marker,
// returning the owning Tree or ErrNodeNotFound if none is found.
func GetTree(path string) (*Tree, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("ceres: resolve %s: %w", path, err)
	}

	root, err := findTreeRoot(abs)
	if err != nil {
		return nil, err
	}

	return newTree(root), nil
}

func findTreeRoot(abs string) (string, error) {
	dir := abs

	for {
		if isTreeRoot(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("ceres: no tree marker found above %s: %w", abs, ErrNodeNotFound)
		}

		dir = parent
	}
}

// parsePositiveInt parses s as a strictly positive integer.
func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("ceres: invalid positive integer %q", s)
	}

	return n, nil
}
