package routes

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentinfo/internal/app/controllers"
	"github.com/yigit/studentinfo/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	studentController *controllers.StudentController,
	contactController *controllers.ContactController,
	artifactController *controllers.ArtifactController,
	artifactPath string,
	maxFileSize int64,
) {
	// API version group
	v1 := router.Group("/api/v1")

	students := v1.Group("/students")
	{
		students.GET("", studentController.ListStudents)
		students.GET("/search", studentController.SearchStudents)
		students.GET("/:id", studentController.GetStudent)
		students.GET("/:id/contacts", studentController.ListStudentContacts)
		students.DELETE("/:id", studentController.DeleteStudent)

		// Multipart routes carry up to two artifacts
		uploads := students.Group("")
		uploads.Use(middleware.MaxBodySize(maxFileSize))
		{
			uploads.POST("", studentController.CreateStudent)
			uploads.PUT("/:id", studentController.UpdateStudent)
		}
	}

	contacts := v1.Group("/contacts")
	{
		contacts.POST("", contactController.CreateContact)
		contacts.GET("/:id", contactController.GetContact)
		contacts.PUT("/:id", contactController.UpdateContact)
		contacts.DELETE("/:id", contactController.DeleteContact)
	}

	// Artifacts are served by ref under the public path
	router.GET(strings.TrimSuffix(artifactPath, "/")+"/:ref", artifactController.ServeArtifact)
}
