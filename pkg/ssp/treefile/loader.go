package treefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sspkit/ssp-go/internal/safefile"
	"github.com/sspkit/ssp-go/pkg/ssp"
)

// sanitizePathError removes the path from os.PathError so that surfaced
// errors do not expose file system paths.
func sanitizePathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}

const (
	// MaxTreeFileSize is the maximum allowed size for a tree file (1MB).
	MaxTreeFileSize = 1 * 1024 * 1024

	// MaxNodeCount is the maximum number of nodes in a tree file.
	MaxNodeCount = 4096

	// SupportedVersion is the currently supported tree file format version.
	SupportedVersion = 1
)

// Load reads, decodes and validates a tree file.
// Symlinks, FIFOs and other non-regular files are rejected.
func Load(path string) (*TreeFile, error) {
	data, err := safefile.ReadRegular(path, MaxTreeFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", sanitizePathError(err))
	}
	return LoadBytes(data)
}

// LoadBytes decodes and validates a tree file held in memory.
func LoadBytes(data []byte) (*TreeFile, error) {
	if len(data) == 0 {
		return nil, errors.New("tree file is empty")
	}
	if len(data) > MaxTreeFileSize {
		return nil, fmt.Errorf("tree file too large: %d bytes (max %d)", len(data), MaxTreeFileSize)
	}

	// Unknown keys are errors.
	var tf TreeFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := tf.Validate(); err != nil {
		return nil, err
	}
	return &tf, nil
}

// Validate checks the structure of the file without resolving actions:
// version, node count, unique names, kinds, patterns and targets.
func (tf *TreeFile) Validate() error {
	if tf.Version != SupportedVersion {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (only version %d is supported)", tf.Version, SupportedVersion),
		}
	}
	if len(tf.Nodes) == 0 {
		return &ValidationError{Field: "nodes", Message: "at least one node is required"}
	}
	if len(tf.Nodes) > MaxNodeCount {
		return &ValidationError{
			Field:   "nodes",
			Message: fmt.Sprintf("too many nodes (%d), maximum allowed is %d", len(tf.Nodes), MaxNodeCount),
		}
	}

	seen := make(map[string]int, len(tf.Nodes))
	for i, n := range tf.Nodes {
		if n.Name == "" {
			return &NodeError{Index: i, Branch: -1, Field: "name", Message: "name is required"}
		}
		if prev, ok := seen[n.Name]; ok {
			return &NodeError{
				Index:   i,
				Name:    n.Name,
				Branch:  -1,
				Field:   "name",
				Message: fmt.Sprintf("duplicate name (previously defined at node[%d])", prev),
			}
		}
		seen[n.Name] = i

		switch n.Kind {
		case "", kindNormal, kindTransparent:
		default:
			return &NodeError{
				Index:   i,
				Name:    n.Name,
				Branch:  -1,
				Field:   "kind",
				Message: fmt.Sprintf("unknown kind %q (want %q or %q)", n.Kind, kindNormal, kindTransparent),
			}
		}
		if n.Deliver != "" && !n.Transparent() {
			return &NodeError{
				Index:   i,
				Name:    n.Name,
				Branch:  -1,
				Field:   "deliver",
				Message: "deliver is only allowed on transparent nodes",
			}
		}

		for j, b := range n.Branches {
			if b.Pattern == "" {
				return &NodeError{Index: i, Name: n.Name, Branch: j, Field: "pattern", Message: "pattern is required"}
			}
			if len(b.Pattern) > ssp.MaxPatternLength {
				return &NodeError{
					Index:   i,
					Name:    n.Name,
					Branch:  j,
					Field:   "pattern",
					Message: fmt.Sprintf("pattern too long: %d bytes (max %d)", len(b.Pattern), ssp.MaxPatternLength),
				}
			}
		}
	}

	// Targets may refer forward, so they are checked once all names are known.
	for i, n := range tf.Nodes {
		for j, b := range n.Branches {
			if b.Target == "" {
				continue
			}
			if _, ok := seen[b.Target]; !ok {
				return &NodeError{
					Index:   i,
					Name:    n.Name,
					Branch:  j,
					Field:   "target",
					Message: fmt.Sprintf("unknown node %q", b.Target),
				}
			}
		}
	}

	if tf.Root != "" {
		if _, ok := seen[tf.Root]; !ok {
			return &ValidationError{Field: "root", Message: fmt.Sprintf("unknown node %q", tf.Root)}
		}
	}
	return nil
}
