package router

import (
	"github.com/ecellhq/launchpad/app/controllers"
	"github.com/ecellhq/launchpad/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Launchpad API",
		})
	})

	v1 := api.Group("/v1")

	// auth
	auth := v1.Group("/auth")
	auth.Post("/register", controllers.HandleRegister)
	auth.Post("/login", controllers.HandleLogin)
	auth.Post("/logout", controllers.HandleLogout)
	auth.Get("/me", middleware.RequireAuth, controllers.HandleMe)

	// categories and tasks
	v1.Get("/categories", controllers.HandleListCategories)
	v1.Get("/categories/:id", controllers.HandleGetCategory)

	// submissions
	submissions := v1.Group("/submissions", middleware.RequireAuth)
	submissions.Post("/", controllers.HandleCreateSubmission)
	submissions.Get("/", controllers.HandleListMySubmissions)

	// leaderboard
	v1.Get("/leaderboard", controllers.HandleLeaderboard)

	// promo preview
	v1.Post("/promo/apply", controllers.HandleApplyPromo)

	// payments
	pay := v1.Group("/payments")
	pay.Post("/initiate", middleware.RequireAuth, controllers.HandleInitiatePayment)
	pay.Post("/callback", controllers.HandlePaymentCallback)
	pay.Get("/callback", controllers.HandlePaymentRedirect)
	pay.Get("/status/:transactionId", controllers.HandleGetPaymentStatus)

	// E-Summit passes (no account required)
	esummit := v1.Group("/esummit")
	esummit.Get("/passes", controllers.HandleListEventPasses)
	esummit.Post("/checkout", controllers.HandleEventCheckout)
	esummit.Get("/callback", controllers.HandleEventCallback)

	// admin surface
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/submissions", controllers.HandleAdminListSubmissions)
	admin.Post("/submissions/:id/review", controllers.HandleAdminReviewSubmission)
	admin.Post("/categories", controllers.HandleAdminCreateCategory)
	admin.Put("/categories/:id", controllers.HandleAdminUpdateCategory)
	admin.Delete("/categories/:id", controllers.HandleAdminDeleteCategory)
	admin.Post("/categories/:id/tasks", controllers.HandleAdminCreateTask)
	admin.Put("/tasks/:id", controllers.HandleAdminUpdateTask)
	admin.Delete("/tasks/:id", controllers.HandleAdminDeleteTask)
	admin.Get("/promo-codes", controllers.HandleAdminListPromoCodes)
	admin.Post("/promo-codes", controllers.HandleAdminCreatePromoCode)
	admin.Put("/promo-codes/:id", controllers.HandleAdminUpdatePromoCode)
	admin.Delete("/promo-codes/:id", controllers.HandleAdminDeletePromoCode)
	admin.Get("/payments", controllers.HandleAdminListPayments)
	admin.Get("/payments/:transactionId", controllers.HandleAdminGetPayment)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
