package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentinfo/internal/app/models/dto"
	"github.com/yigit/studentinfo/internal/app/services"
	"github.com/yigit/studentinfo/internal/middleware"
)

// ContactController handles contact operations
type ContactController struct {
	contactService services.ContactService
}

// NewContactController creates a new ContactController
func NewContactController(contactService services.ContactService) *ContactController {
	return &ContactController{contactService: contactService}
}

// CreateContact godoc
// @Summary Create a contact for a student
// @Tags contacts
// @Accept json
// @Produce json
// @Param request body dto.CreateContactRequest true "Contact"
// @Success 201 {object} dto.APIResponse{data=models.Contact}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /contacts [post]
func (c *ContactController) CreateContact(ctx *gin.Context) {
	var req dto.CreateContactRequest
	if err := middleware.BindJSON(ctx, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	contact, err := c.contactService.AddContact(ctx.Request.Context(), services.ContactInput{
		StudentID: req.StudentID,
		ContactDetails: services.ContactDetails{
			MobileNumber: req.MobileNumber,
			City:         req.City,
			Address:      req.Address,
		},
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{Data: contact})
}

// GetContact godoc
// @Summary Get a contact by ID
// @Tags contacts
// @Produce json
// @Param id path int true "Contact ID"
// @Success 200 {object} dto.APIResponse{data=models.Contact}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /contacts/{id} [get]
func (c *ContactController) GetContact(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	contact, err := c.contactService.GetContact(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: contact})
}

// UpdateContact godoc
// @Summary Update a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path int true "Contact ID"
// @Param request body dto.UpdateContactRequest true "Contact fields"
// @Success 200 {object} dto.APIResponse{data=models.Contact}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /contacts/{id} [put]
func (c *ContactController) UpdateContact(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdateContactRequest
	if err := middleware.BindJSON(ctx, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	contact, err := c.contactService.UpdateContact(ctx.Request.Context(), id, services.ContactDetails{
		MobileNumber: req.MobileNumber,
		City:         req.City,
		Address:      req.Address,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: contact})
}

// DeleteContact godoc
// @Summary Delete a contact
// @Tags contacts
// @Param id path int true "Contact ID"
// @Success 204
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /contacts/{id} [delete]
func (c *ContactController) DeleteContact(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.contactService.DeleteContact(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
