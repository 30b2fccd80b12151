package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/brightclass/assessment-service/internal/config"
	"github.com/brightclass/assessment-service/internal/models"
	"github.com/brightclass/assessment-service/internal/repositories"
	"github.com/brightclass/assessment-service/internal/services"
	"github.com/brightclass/assessment-service/internal/utils"
	"github.com/brightclass/assessment-service/internal/validator"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
	attemptHandler    *AttemptHandler
	gradingHandler    *GradingHandler
	courseHandler     *CourseHandler
	authMiddleware    *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), validator, logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		gradingHandler:    NewGradingHandler(serviceManager.Grading(), validator, logger),
		courseHandler:     NewCourseHandler(serviceManager.Enrollment(), serviceManager.Export(), validator, logger),
		authMiddleware:    NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
	}
}

// SetupRoutes sets up all API routes.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		staffOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleInstructor, models.RoleAdmin)

		assessments := v1.Group("/assessments")
		{
			// Authoring - instructors and admins only
			assessments.POST("", staffOnly, hm.assessmentHandler.CreateAssessment)
			assessments.PUT("/:id", staffOnly, hm.assessmentHandler.UpdateAssessment)
			assessments.DELETE("/:id", staffOnly, hm.assessmentHandler.DeleteAssessment)
			assessments.POST("/:id/questions", staffOnly, hm.assessmentHandler.AddQuestion)
			assessments.DELETE("/:id/questions/:question_id", staffOnly, hm.assessmentHandler.RemoveQuestion)
			assessments.PUT("/:id/questions/:question_id/active", staffOnly, hm.assessmentHandler.SetQuestionActive)

			// Reads - all authenticated users
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.GET("/:id/take", hm.assessmentHandler.GetAssessmentForTaking)

			// Reporting - instructors and admins only
			assessments.GET("/:id/stats", staffOnly, hm.assessmentHandler.GetAssessmentStats)
			assessments.POST("/:id/export", staffOnly, hm.courseHandler.ExportGradebook)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.attemptHandler.StartAttempt)
			attempts.GET("", hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/details", hm.attemptHandler.GetAttemptWithDetails)
			attempts.POST("/:id/answer", hm.attemptHandler.SubmitAnswer)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.POST("/:id/violations", hm.attemptHandler.RecordViolation)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)

			attempts.GET("/current/:assessment_id", hm.attemptHandler.GetCurrentAttempt)
			attempts.GET("/assessment/:assessment_id", staffOnly, hm.attemptHandler.ListAttemptsByAssessment)
		}

		grading := v1.Group("/grading")
		grading.Use(staffOnly)
		{
			grading.POST("/answers/:answer_id", hm.gradingHandler.GradeAnswer)
			grading.POST("/attempts/:attempt_id/auto", hm.gradingHandler.AutoGradeAttempt)
			grading.POST("/attempts/:attempt_id/recalculate", hm.gradingHandler.RecalculateAttempt)
			grading.GET("/assessments/:assessment_id/overview", hm.gradingHandler.GetGradingOverview)
		}

		enrollments := v1.Group("/enrollments")
		{
			enrollments.POST("", hm.courseHandler.Enroll)
			enrollments.GET("", hm.courseHandler.ListEnrollments)
			enrollments.DELETE("/:course_id", hm.courseHandler.Drop)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "assessment-service",
		})
	})
}
