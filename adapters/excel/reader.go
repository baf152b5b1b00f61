package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"gradelens/domain/core"
	"gradelens/internal"
	"gradelens/ports"
)

// Format is a supported spreadsheet encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFromName picks the format by file extension
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: want .csv or .xlsx", filepath.Ext(name))
	}
}

// FileSource reads a CSV or Excel file from disk. Its identity is the hash of
// the file content, so an edited file is reloaded and a copied one is not.
type FileSource struct {
	path   string
	sheet  string
	format Format
}

// NewFileSource creates a source for path. sheet selects the worksheet of an
// Excel file; empty means the first sheet.
func NewFileSource(path, sheet string) (*FileSource, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{path: path, sheet: sheet, format: format}, nil
}

// Identity hashes the current file content
func (s *FileSource) Identity(ctx context.Context) (core.Hash, error) {
	data, err := s.read()
	if err != nil {
		return "", err
	}
	return identity(s.format, s.sheet, data), nil
}

// ReadTable reads the header and rows
func (s *FileSource) ReadTable(ctx context.Context) (*ports.RawTable, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	return decode(filepath.Base(s.path), s.format, s.sheet, data)
}

func (s *FileSource) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(string(s.format)), s.path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return data, nil
}

// UploadSource reads a file supplied as bytes, e.g. an HTTP upload
type UploadSource struct {
	name   string
	sheet  string
	format Format
	data   []byte
}

// NewUploadSource creates a source over an uploaded file. The format comes
// from the file name.
func NewUploadSource(name, sheet string, data []byte) (*UploadSource, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}
	return &UploadSource{name: name, sheet: sheet, format: format, data: data}, nil
}

// Identity hashes the uploaded content
func (s *UploadSource) Identity(ctx context.Context) (core.Hash, error) {
	return identity(s.format, s.sheet, s.data), nil
}

// ReadTable reads the header and rows
func (s *UploadSource) ReadTable(ctx context.Context) (*ports.RawTable, error) {
	return decode(s.name, s.format, s.sheet, s.data)
}

func identity(format Format, sheet string, data []byte) core.Hash {
	return core.SourceHash("spreadsheet", string(format), sheet, core.ContentHash(data).String())
}

func decode(name string, format Format, sheet string, data []byte) (*ports.RawTable, error) {
	logger := internal.DefaultLogger.Component("excel")
	start := time.Now()

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(data)
	case FormatXLSX:
		rows, err = readXLSX(data, sheet)
	default:
		err = fmt.Errorf("unsupported file type: %s", format)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", core.ErrSchema, name)
	}

	logger.Debug("%s read in %.2fms (%d rows)", name, float64(time.Since(start).Nanoseconds())/1e6, len(rows)-1)
	return &ports.RawTable{Name: name, Header: rows[0], Rows: rows[1:]}, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV file: %v", core.ErrParse, err)
	}
	return rows, nil
}

func readXLSX(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", core.ErrParse, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", core.ErrSchema)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read sheet %q: %v", core.ErrSchema, sheet, err)
	}
	return rows, nil
}
