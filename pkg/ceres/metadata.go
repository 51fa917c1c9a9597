package ceres

import (
	"os"

	"github.com/ceres-project/ceres/pkg/persist"
)

// metadataBasename is the node metadata filename (without the codec's
// extension, which persist.JSONCodec supplies as ".json").
const metadataBasename = ".ceres-node"

// DefaultTimeStep is used when a node is created without an explicit
// timeStep property.
const DefaultTimeStep = 60

// Retention is a single [step, count] retention archive entry, kept purely
// as a last-resort step hint for read (§4.2); the core engine does not
// enforce or rotate retentions itself.
type Retention struct {
	Step  int `json:"step"`
	Count int `json:"count"`
}

// Metadata is a node's persisted document. Properties carries any
// additional key/value pairs a caller supplied at create time; timeStep
// and retentions are promoted to first-class fields since the core engine
// reads them directly.
type Metadata struct {
	TimeStep   int64          `json:"timeStep"`
	Retentions []Retention    `json:"retentions,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

func metadataPersister() *persist.Persister[Metadata] {
	return persist.NewPersister[Metadata](metadataBasename, persist.NewJSONCodec())
}

// readMetadata loads the node's metadata document from dir.
func readMetadata(dir string) (Metadata, error) {
	var meta Metadata

	err := metadataPersister().Load(dir, func(m *Metadata) { meta = *m })
	if os.IsNotExist(err) {
		return Metadata{}, ErrNodeNotFound
	}

	if err != nil {
		return Metadata{}, err
	}

	return meta, nil
}

// writeMetadata persists meta to dir, overwriting any existing document.
func writeMetadata(dir string, meta Metadata) error {
	return metadataPersister().Save(dir, func() *Metadata { return &meta })
}
