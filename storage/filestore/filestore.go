package filestore

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
)

// Kinds of stored uploads. Each carries its own size limit and content type
// allow-list.
type Kind int

const (
	KindMemberPDF Kind = iota
	KindMasterPDF
	KindSpreadsheet
	KindReceipt
)

var (
	// errors
	ErrTooLarge = errors.New("file exceeds the size limit")
	ErrBadType  = errors.New("unsupported file type")
	ErrNotFound = errors.New("file not found")
)

var allowedTypes = map[Kind][]string{
	KindMemberPDF:   {"application/pdf"},
	KindMasterPDF:   {"application/pdf"},
	KindSpreadsheet: {"application/zip", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}, // xlsx detects as zip
	KindReceipt:     {"application/pdf", "image/png", "image/jpeg"},
}

// Store writes uploads to disk under random names, keeping only the original
// extension. The database rows hold the generated filename.
type Store struct {
	dir    string
	limits map[Kind]int64
}

func NewStore(conf *core.Config) (*Store, error) {
	if err := os.MkdirAll(conf.Uploads.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &Store{
		dir: conf.Uploads.Dir,
		limits: map[Kind]int64{
			KindMemberPDF:   conf.Uploads.MaxPDFBytes,
			KindMasterPDF:   conf.Uploads.MaxMasterPDFBytes,
			KindSpreadsheet: conf.Uploads.MaxSpreadsheetBytes,
			KindReceipt:     conf.Uploads.MaxReceiptBytes,
		},
	}, nil
}

// Save validates and persists an upload, returning the generated filename.
func (st *Store) Save(r io.Reader, origName string, kind Kind) (string, error) {
	limit := st.limits[kind]
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	if int64(len(data)) > limit {
		return "", ErrTooLarge
	}
	if !typeAllowed(kind, data) {
		return "", ErrBadType
	}

	ext := strings.ToLower(filepath.Ext(origName))
	filename := uuid.New().String() + ext
	if err = os.WriteFile(filepath.Join(st.dir, filename), data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing upload")
	}
	return filename, nil
}

func (st *Store) Open(filename string) (io.ReadCloser, error) {
	f, err := os.Open(st.path(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "opening stored file")
	}
	return f, nil
}

func (st *Store) Remove(filename string) error {
	if filename == "" {
		return nil
	}
	if err := os.Remove(st.path(filename)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing stored file")
	}
	return nil
}

// path rejects names that escape the uploads dir.
func (st *Store) path(filename string) string {
	return filepath.Join(st.dir, filepath.Base(filename))
}

func typeAllowed(kind Kind, data []byte) bool {
	detected := http.DetectContentType(data)
	// DetectContentType may append charset params
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}
	for _, t := range allowedTypes[kind] {
		if detected == t {
			return true
		}
	}
	return false
}
