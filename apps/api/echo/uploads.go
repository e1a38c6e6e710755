package echoapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/waynerigley/migslist/core"
	"github.com/waynerigley/migslist/storage/filestore"
)

// saveUpload reads a multipart form file and persists it through the store,
// returning the generated filename.
func saveUpload(ctx echo.Context, files *filestore.Store, field string, kind filestore.Kind) (string, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return "", core.NewValidationError(
			errors.New("missing file"), core.FieldError{Field: field, Error: "a file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	filename, err := files.Save(f, fh.Filename, kind)
	if err != nil {
		switch errors.Cause(err) {
		case filestore.ErrTooLarge:
			return "", errFileTooLarge
		case filestore.ErrBadType:
			return "", errUnsupportedFileType
		}
		return "", errors.Wrap(err, "saving upload")
	}
	return filename, nil
}

// readUpload reads a multipart form file into memory without persisting it.
func readUpload(ctx echo.Context, field string, limit int64) ([]byte, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, core.NewValidationError(
			errors.New("missing file"), core.FieldError{Field: field, Error: "a file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

// streamStoredFile serves a stored upload as a download under downloadName.
func streamStoredFile(ctx echo.Context, files *filestore.Store, filename, downloadName string) error {
	if filename == "" {
		return errHttpNotFound
	}
	f, err := files.Open(filename)
	if err != nil {
		if errors.Cause(err) == filestore.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "opening stored file")
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	setDownloadHeader(ctx, downloadName)
	return ctx.Stream(http.StatusOK, contentType, f)
}

// sendBlob serves generated file content as a download.
func sendBlob(ctx echo.Context, contentType, downloadName string, data []byte) error {
	setDownloadHeader(ctx, downloadName)
	return ctx.Blob(http.StatusOK, contentType, data)
}

func setDownloadHeader(ctx echo.Context, downloadName string) {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", downloadName))
}

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimePDF  = "application/pdf"
)
