package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/anmicius0/artifactory-sync/internal/client"
	"github.com/anmicius0/artifactory-sync/internal/config"
	"github.com/anmicius0/artifactory-sync/internal/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// definitionDecoders maps a file extension to the decoder for definitions
// stored in that format.
var definitionDecoders = map[string]func([]byte) (config.RepositoryDefinition, error){
	".json": decodeJSONDefinition,
	".yaml": decodeYAMLDefinition,
	".yml":  decodeYAMLDefinition,
	".toml": decodeTOMLDefinition,
}

// SkippedDefinition is a definition file that was left out of a batch.
type SkippedDefinition struct {
	File   string
	Reason error
}

// RepositoryBatch holds the definitions loaded from one directory, grouped by
// class in file order.
type RepositoryBatch struct {
	Dir         string
	Definitions map[config.RepositoryClass][]config.RepositoryDefinition
	Skipped     []SkippedDefinition
}

// Len returns the number of usable definitions.
func (b *RepositoryBatch) Len() int {
	n := 0
	for _, defs := range b.Definitions {
		n += len(defs)
	}
	return n
}

// Ordered returns the definitions in apply order: local, remote, virtual.
func (b *RepositoryBatch) Ordered() []config.RepositoryDefinition {
	out := make([]config.RepositoryDefinition, 0, b.Len())
	for _, class := range config.RepositoryClassOrder {
		out = append(out, b.Definitions[class]...)
	}
	return out
}

// LoadRepositoryBatch reads every definition file in dir. Files that cannot
// be parsed or lack a key or a known rclass are recorded in Skipped and do
// not stop the load.
func LoadRepositoryBatch(dir string) (*RepositoryBatch, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &client.InvalidAPICallError{Reason: fmt.Sprintf("repository directory '%s' not found", dir), Err: err}
	}
	if !info.IsDir() {
		return nil, &client.InvalidAPICallError{Reason: fmt.Sprintf("'%s' is not a directory", dir)}
	}

	// ReadDir returns entries sorted by filename
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read repository directory '%s': %w", dir, err)
	}

	log := utils.WithComponent("repository_loader")
	batch := &RepositoryBatch{
		Dir:         dir,
		Definitions: make(map[config.RepositoryClass][]config.RepositoryDefinition),
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		decode, ok := definitionDecoders[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		def, err := loadDefinition(path, decode)
		if err != nil {
			log.Warn("Skipping repository definition",
				zap.String(utils.FieldFile, path),
				zap.Error(err))
			batch.Skipped = append(batch.Skipped, SkippedDefinition{File: path, Reason: err})
			continue
		}
		batch.Definitions[def.Class()] = append(batch.Definitions[def.Class()], def)
		log.Debug("Loaded repository definition",
			zap.String(utils.FieldFile, path),
			zap.String(utils.FieldRepo, def.Key()),
			zap.String(utils.FieldClass, string(def.Class())))
	}

	log.Info("Loaded repository definitions",
		zap.String(utils.FieldPath, dir),
		zap.Int("count", batch.Len()),
		zap.Int("skipped", len(batch.Skipped)))
	return batch, nil
}

func loadDefinition(path string, decode func([]byte) (config.RepositoryDefinition, error)) (config.RepositoryDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("parse definition: document is empty")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func decodeJSONDefinition(data []byte) (config.RepositoryDefinition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	// keep numbers verbatim when the definition is sent back as JSON
	dec.UseNumber()
	var def config.RepositoryDefinition
	if err := dec.Decode(&def); err != nil {
		return nil, err
	}
	return def, nil
}

func decodeYAMLDefinition(data []byte) (config.RepositoryDefinition, error) {
	var def config.RepositoryDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	return def, nil
}

func decodeTOMLDefinition(data []byte) (config.RepositoryDefinition, error) {
	var def config.RepositoryDefinition
	if _, err := toml.Decode(string(data), &def); err != nil {
		return nil, err
	}
	return def, nil
}

// ApplyResult is the outcome of applying one definition.
type ApplyResult struct {
	Key     string
	Class   config.RepositoryClass
	Success bool
	Error   error
}

// RepositoryBatchManager applies a RepositoryBatch in dependency order.
type RepositoryBatchManager struct {
	applier *RepositoryApplier
	// OnResult, when set, receives each result as soon as it is known.
	OnResult func(ApplyResult)
}

// NewRepositoryBatchManager creates a batch manager around applier.
func NewRepositoryBatchManager(applier *RepositoryApplier) *RepositoryBatchManager {
	return &RepositoryBatchManager{applier: applier}
}

// Apply attempts every definition: all local ones, then remote, then virtual,
// keeping file order within a class. One failure does not stop the batch.
func (bm *RepositoryBatchManager) Apply(ctx context.Context, batch *RepositoryBatch) []ApplyResult {
	log := utils.WithComponent("repository_batch")
	ordered := batch.Ordered()
	results := make([]ApplyResult, 0, len(ordered))

	log.Debug("Starting repository batch",
		zap.String(utils.FieldPath, batch.Dir),
		zap.Int("count", len(ordered)))

	for _, def := range ordered {
		result := ApplyResult{Key: def.Key(), Class: def.Class()}
		result.Success, result.Error = bm.applier.CreateOrUpdate(ctx, def)
		if result.Error != nil {
			log.Error("Failed to apply repository",
				zap.String(utils.FieldRepo, result.Key),
				zap.String(utils.FieldClass, string(result.Class)),
				zap.Error(result.Error))
		}
		results = append(results, result)
		if bm.OnResult != nil {
			bm.OnResult(result)
		}
	}
	return results
}
