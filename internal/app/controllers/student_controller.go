package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentinfo/internal/app/models/dto"
	"github.com/yigit/studentinfo/internal/app/services"
	"github.com/yigit/studentinfo/internal/middleware"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
)

// StudentController handles student operations
type StudentController struct {
	studentService services.StudentService
	contactService services.ContactService
	publicPath     string
}

// NewStudentController creates a new StudentController. publicPath is the URL prefix
// artifacts are served under.
func NewStudentController(studentService services.StudentService, contactService services.ContactService, publicPath string) *StudentController {
	return &StudentController{
		studentService: studentService,
		contactService: contactService,
		publicPath:     publicPath,
	}
}

// ListStudents godoc
// @Summary List students
// @Description All students, most recently created first
// @Tags students
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.StudentResponse}
// @Router /students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	students, err := c.studentService.ListStudents(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: dto.NewStudentListResponse(students, c.publicPath),
	})
}

// SearchStudents godoc
// @Summary Search students
// @Description Case-insensitive substring match on name, father name and aadhar number
// @Tags students
// @Produce json
// @Param keyword query string false "Search keyword"
// @Success 200 {object} dto.APIResponse{data=[]dto.StudentResponse}
// @Router /students/search [get]
func (c *StudentController) SearchStudents(ctx *gin.Context) {
	students, err := c.studentService.SearchStudents(ctx.Request.Context(), ctx.Query("keyword"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: dto.NewStudentListResponse(students, c.publicPath),
	})
}

// GetStudent godoc
// @Summary Get a student by ID
// @Tags students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student, err := c.studentService.GetStudent(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: dto.NewStudentResponse(student, c.publicPath),
	})
}

// CreateStudent godoc
// @Summary Create a student
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Name"
// @Param fatherName formData string true "Father's name"
// @Param aadharNumber formData string true "Aadhar number"
// @Param profilePhotoFile formData file false "Profile photo"
// @Param aadharFile formData file false "Identity document"
// @Success 201 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /students [post]
func (c *StudentController) CreateStudent(ctx *gin.Context) {
	in, cleanup, err := c.bindStudentForm(ctx)
	defer cleanup()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student, err := c.studentService.AddStudent(ctx.Request.Context(), in)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data: dto.NewStudentResponse(student, c.publicPath),
	})
}

// UpdateStudent godoc
// @Summary Update a student
// @Description Files not sent are kept unless clearProfilePhoto or clearIdentityDoc is set
// @Tags students
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /students/{id} [put]
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	in, cleanup, err := c.bindStudentForm(ctx)
	defer cleanup()
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student, err := c.studentService.UpdateStudent(ctx.Request.Context(), id, in)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: dto.NewStudentResponse(student, c.publicPath),
	})
}

// DeleteStudent godoc
// @Summary Delete a student with its contacts and files
// @Tags students
// @Param id path int true "Student ID"
// @Success 204
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /students/{id} [delete]
func (c *StudentController) DeleteStudent(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.studentService.DeleteStudent(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// ListStudentContacts godoc
// @Summary List the contacts of a student
// @Tags students
// @Produce json
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Contact}
// @Router /students/{id}/contacts [get]
func (c *StudentController) ListStudentContacts(ctx *gin.Context) {
	id, err := parseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	contacts, err := c.contactService.ListContacts(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: contacts})
}

// bindStudentForm reads the multipart form. The cleanup func closes the opened file parts
// and is safe to call on every path.
func (c *StudentController) bindStudentForm(ctx *gin.Context) (services.StudentInput, func(), error) {
	var form dto.StudentForm
	if err := ctx.ShouldBind(&form); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return services.StudentInput{}, func() {}, err
		}
		return services.StudentInput{}, func() {}, apperrors.NewValidationError("form", "Invalid request format")
	}

	photo, closePhoto, err := formUpload(ctx, dto.ProfilePhotoField)
	if err != nil {
		return services.StudentInput{}, closePhoto, err
	}
	doc, closeDoc, err := formUpload(ctx, dto.IdentityDocField)
	cleanup := func() {
		closePhoto()
		closeDoc()
	}
	if err != nil {
		return services.StudentInput{}, cleanup, err
	}

	return services.StudentInput{
		Name:              form.Name,
		FatherName:        form.FatherName,
		AadharNumber:      form.AadharNumber,
		ProfilePhoto:      photo,
		IdentityDoc:       doc,
		ClearProfilePhoto: form.ClearProfilePhoto,
		ClearIdentityDoc:  form.ClearIdentityDoc,
	}, cleanup, nil
}
