package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/controllers"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	enrollmentController *controllers.EnrollmentController,
	studentController *controllers.StudentController,
	documentController *controllers.DocumentController,
) {
	// API version group
	v1 := router.Group("/api/v1")

	enrollments := v1.Group("/enrollments")
	{
		enrollments.GET("/:id", enrollmentController.GetEnrollment)
		enrollments.POST("/:id/process", enrollmentController.ProcessEnrollment)
	}

	students := v1.Group("/students")
	{
		students.GET("", studentController.ListStudents)
		students.GET("/:id/aggregate", studentController.GetAggregate)
		students.PUT("/:id/aggregate", studentController.SaveAggregate)
		students.GET("/:id/documents", studentController.GetDocuments)
	}

	documents := v1.Group("/documents")
	{
		documents.GET("/:id/signed-url", documentController.GetSignedURL)
	}

	// Health check
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})
}
