package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

// Exporter serializes reports to JSON, optionally zstd-compressed.
type Exporter struct {
	compressor CompressorInterface
}

func NewExporter(compressor CompressorInterface) *Exporter {
	return &Exporter{compressor: compressor}
}

func (e *Exporter) Encode(rep *Report, compress bool) ([]byte, error) {
	data, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	if !compress {
		return data, nil
	}
	out, err := e.compressor.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	return out, nil
}

func (e *Exporter) Export(w io.Writer, rep *Report, compress bool) error {
	data, err := e.Encode(rep, compress)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (e *Exporter) Decode(data []byte, compressed bool) (*Report, error) {
	if compressed {
		raw, err := e.compressor.Decompress(data)
		if err != nil {
			return nil, fmt.Errorf("decompress report: %w", err)
		}
		data = raw
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rep, nil
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// WriteFile writes the encoded report next to fileName first and renames it
// into place, so readers never observe a partial export.
func (e *Exporter) WriteFile(fileName string, rep *Report, compress bool) error {
	data, err := e.Encode(rep, compress)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// ReadFile loads an export written by WriteFile, compressed or not.
func (e *Exporter) ReadFile(fileName string) (*Report, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return e.Decode(data, bytes.HasPrefix(data, zstdMagic))
}
