// Package inventory loads and validates device app inventories.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
	"howett.net/plist"

	"privacyguard-lab/internal/domain/models"
)

// ErrInvalidInventory is returned when a document fails schema validation
var ErrInvalidInventory = errors.New("invalid inventory")

var (
	snapshotLoader  = gojsonschema.NewStringLoader(snapshotSchema)
	inventoryLoader = gojsonschema.NewStringLoader(inventorySchema)
)

// Inventory is the list of apps installed on one device
type Inventory struct {
	DeviceID string               `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	Apps     []models.AppSnapshot `json:"apps" yaml:"apps"`
}

// Format is the encoding of an inventory document
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatPlist Format = "plist"
)

// FormatFromPath picks the format from the file extension; unknown extensions are YAML
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".plist":
		return FormatPlist
	}
	return FormatYAML
}

// Load reads and validates an inventory file
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	return Parse(data, FormatFromPath(path))
}

// Parse decodes an inventory document, validating it against the inventory schema.
// YAML and property list documents are converted to JSON before validation.
func Parse(data []byte, format Format) (*Inventory, error) {
	raw := data
	switch format {
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert yaml: %w", err)
		}
		raw = converted
	case FormatPlist:
		// XML, binary and OpenStep property lists are all accepted
		var doc any
		if _, err := plist.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse plist: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert plist: %w", err)
		}
		raw = converted
	}

	if err := validate(inventoryLoader, raw); err != nil {
		return nil, err
	}

	var inv Inventory
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	return &inv, nil
}

// ValidateSnapshotJSON validates one JSON-encoded app snapshot
func ValidateSnapshotJSON(raw []byte) error {
	return validate(snapshotLoader, raw)
}

func validate(schema gojsonschema.JSONLoader, raw []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInventory, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidInventory, strings.Join(msgs, "; "))
}
