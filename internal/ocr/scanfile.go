package ocr

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed scan.schema.json
var scanSchemaJSON []byte

var (
	scanSchemaOnce sync.Once
	scanSchema     *jsonschema.Schema
	scanSchemaErr  error
)

func compiledScanSchema() (*jsonschema.Schema, error) {
	scanSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("scan.schema.json", bytes.NewReader(scanSchemaJSON)); err != nil {
			scanSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		scanSchema, scanSchemaErr = compiler.Compile("scan.schema.json")
	})
	return scanSchema, scanSchemaErr
}

// DecodeScan validates a saved OCR result ({"text", "words", "width",
// "height"}) against the scan schema and decodes it.
func DecodeScan(data []byte) (*Result, error) {
	schema, err := compiledScanSchema()
	if err != nil {
		return nil, fmt.Errorf("compile scan schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal scan: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("scan does not match schema: %w", err)
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode scan: %w", err)
	}
	return &res, nil
}

// LoadScanFile reads OCR output saved to disk. The extension picks the
// format: .json scan files, .hocr/.html hOCR, .tsv Tesseract TSV, and
// anything else as plain text without word geometry.
func LoadScanFile(path string) (*Result, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading a user-provided scan path is expected
	if err != nil {
		return nil, fmt.Errorf("read scan %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeScan(data)
	case ".hocr", ".html", ".htm":
		return ParseHOCR(data)
	case ".tsv":
		return ParseTSV(data)
	default:
		return &Result{Text: string(data)}, nil
	}
}
