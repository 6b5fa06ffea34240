package http

import (
	"github.com/gofiber/fiber/v2"

	pkgjwt "github.com/jhoicas/facturador-sunat/pkg/jwt"
	pkgsunat "github.com/jhoicas/facturador-sunat/pkg/sunat"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Auth      AuthService
	Companies CompanyService
	Products  ProductService
	Documents DocumentService
	Customers CustomerService
	JWTSecret string
	Log       pkgsunat.EventLogger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.Auth)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Alta de emisor (público)
	companyHandler := NewCompanyHandler(deps.Companies)
	api.Post("/companies", companyHandler.Create)

	// Rutas protegidas (requieren Bearer Token con company_id)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(pkgjwt.RoleAdmin, pkgjwt.RoleOperator)
	adminOnly := RequireRole(pkgjwt.RoleAdmin)

	companies := protected.Group("/companies")
	companies.Get("/me", anyRole, companyHandler.Me)
	companies.Put("/me", adminOnly, companyHandler.Update)
	companies.Put("/me/sunat", adminOnly, companyHandler.SetSunatCredentials)

	protected.Post("/users", adminOnly, authHandler.CreateUser)

	products := protected.Group("/products", anyRole)
	productHandler := NewProductHandler(deps.Products)
	products.Post("/", productHandler.Create)
	products.Get("/:id", productHandler.Get)
	products.Put("/:id", productHandler.Update)

	customers := protected.Group("/customers", anyRole)
	customerHandler := NewCustomerHandler(deps.Customers)
	customers.Post("/", customerHandler.Create)
	customers.Get("/:id", customerHandler.Get)

	documents := protected.Group("/documents", anyRole)
	documentHandler := NewDocumentHandler(deps.Documents, deps.Log)
	documents.Post("/", documentHandler.Create)
	documents.Get("/", documentHandler.List)
	documents.Get("/:id", documentHandler.Get)
	documents.Put("/:id", documentHandler.Update)
	documents.Delete("/:id", documentHandler.Delete)
	documents.Post("/:id/send", documentHandler.Send)
	documents.Post("/:id/cancel", documentHandler.Cancel)
	documents.Get("/:id/status", documentHandler.Status)
	documents.Get("/:id/xml", documentHandler.DownloadXML)
}
