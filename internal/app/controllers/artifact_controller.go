package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentinfo/internal/app/models/dto"
)

// ArtifactLocator resolves an artifact ref to its file, rejecting refs that are not artifacts
type ArtifactLocator interface {
	Path(ref string) (string, error)
}

// ArtifactController serves stored artifacts by ref
type ArtifactController struct {
	artifacts ArtifactLocator
}

// NewArtifactController creates a new ArtifactController
func NewArtifactController(artifacts ArtifactLocator) *ArtifactController {
	return &ArtifactController{artifacts: artifacts}
}

// ServeArtifact godoc
// @Summary Download a stored artifact
// @Tags artifacts
// @Param ref path string true "Artifact ref"
// @Success 200 {file} binary
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /uploads/{ref} [get]
func (c *ArtifactController) ServeArtifact(ctx *gin.Context) {
	path, err := c.artifacts.Path(ctx.Param("ref"))
	if err != nil {
		// Temp files and malformed refs are indistinguishable from missing artifacts
		ctx.AbortWithStatusJSON(http.StatusNotFound, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Artifact not found"),
		})
		return
	}
	ctx.File(path)
}
