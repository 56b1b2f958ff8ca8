package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentinfo/internal/app/services"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
)

// parseIDParam parses a positive ID parameter from the request path
func parseIDParam(ctx *gin.Context, paramName string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(paramName), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(paramName, "invalid "+paramName)
	}
	return id, nil
}

// formUpload opens the named file part. A missing or empty part yields a nil upload; the returned
// closer must be called once the upload has been consumed.
func formUpload(ctx *gin.Context, field string) (*services.ArtifactUpload, func(), error) {
	header, err := ctx.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, func() {}, err
		}
		return nil, func() {}, apperrors.NewValidationError(field, "invalid file upload")
	}
	if header.Size == 0 {
		return nil, func() {}, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, apperrors.NewValidationError(field, "unable to read uploaded file")
	}

	return &services.ArtifactUpload{Content: file, Filename: header.Filename}, closeFile(file), nil
}

func closeFile(f multipart.File) func() {
	return func() { _ = f.Close() }
}
