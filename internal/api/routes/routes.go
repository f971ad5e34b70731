package routes

import (
	"hospitality-procurement-api-server/internal/api/handlers"
	"hospitality-procurement-api-server/internal/api/middleware"
	"hospitality-procurement-api-server/internal/auth"
	"hospitality-procurement-api-server/internal/ledger"
	"hospitality-procurement-api-server/internal/models"
	"hospitality-procurement-api-server/internal/s3"
	"hospitality-procurement-api-server/internal/socket"
	"hospitality-procurement-api-server/internal/store"
	"hospitality-procurement-api-server/internal/workflow"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires handlers to routes and applies the role policy:
// staff submit requisitions, validators approve or reject, purchasing
// converts to orders, warehouse moves stock, superadmin manages master
// data and accounts.
func SetupRouter(
	wf *workflow.Service,
	ldg *ledger.Ledger,
	st store.Store,
	authService *auth.Service,
	s3Uploader *s3.Uploader,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	requisitionHandler := &handlers.RequisitionHandler{Workflow: wf, Uploader: s3Uploader}
	stockHandler := &handlers.StockHandler{Workflow: wf, Ledger: ldg}
	userHandler := &handlers.UserHandler{Store: st, Auth: authService}
	catalogHandler := &handlers.CatalogHandler{Store: st}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub, Auth: authService}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/login", userHandler.Login)
		}

		// Superadmin: accounts, master data, ledger audit.
		admin := apiV1.Group("/admin")
		admin.Use(middleware.Authenticate(authService))
		admin.Use(middleware.Authorize(models.RoleSuperAdmin))
		{
			admin.POST("/users", userHandler.CreateUser)

			products := admin.Group("/products")
			{
				products.POST("/", catalogHandler.CreateProduct)
				products.DELETE("/:sku", catalogHandler.DeleteProduct)
			}
			suppliers := admin.Group("/suppliers")
			{
				suppliers.POST("/", catalogHandler.CreateSupplier)
			}
			departments := admin.Group("/departments")
			{
				departments.POST("/", catalogHandler.CreateDepartment)
			}

			admin.GET("/stock/verify", stockHandler.VerifyLedger)
		}

		business := apiV1.Group("/")
		business.Use(middleware.Authenticate(authService))
		{
			// Master data reads are open to every authenticated role.
			business.GET("/products", catalogHandler.ListProducts)
			business.GET("/products/:sku", catalogHandler.GetProduct)
			business.GET("/suppliers", catalogHandler.ListSuppliers)
			business.GET("/departments", catalogHandler.ListDepartments)

			requisitions := business.Group("/requisitions")
			{
				readRoutes := requisitions.Group("/")
				{
					readRoutes.GET("/", requisitionHandler.ListRequisitions)
					readRoutes.GET("/:id", requisitionHandler.GetRequisition)
					readRoutes.GET("/:id/receipts", requisitionHandler.ListReceipts)
				}

				staffRoutes := requisitions.Group("/")
				staffRoutes.Use(middleware.Authorize(models.RoleStaff, models.RoleSuperAdmin))
				{
					staffRoutes.POST("/", requisitionHandler.SubmitRequisition)
				}

				validatorRoutes := requisitions.Group("/")
				validatorRoutes.Use(middleware.Authorize(models.RoleValidator, models.RoleSuperAdmin))
				{
					validatorRoutes.POST("/:id/approve", requisitionHandler.ApproveRequisition)
					validatorRoutes.POST("/:id/reject", requisitionHandler.RejectRequisition)
				}

				purchasingRoutes := requisitions.Group("/")
				purchasingRoutes.Use(middleware.Authorize(models.RolePurchasing, models.RoleSuperAdmin))
				{
					purchasingRoutes.POST("/:id/convert", requisitionHandler.ConvertToOrder)
				}

				warehouseRoutes := requisitions.Group("/")
				warehouseRoutes.Use(middleware.Authorize(models.RoleWarehouse, models.RoleSuperAdmin))
				{
					warehouseRoutes.POST("/:id/receipts", requisitionHandler.RecordReceipt)
				}
			}

			receipts := business.Group("/receipts")
			receipts.Use(middleware.Authorize(models.RoleWarehouse, models.RoleSuperAdmin))
			{
				receipts.POST("/:receiptID/document", requisitionHandler.UploadReceiptDocument)
			}

			stock := business.Group("/stock")
			{
				stock.GET("/:sku", stockHandler.GetStockLevel)
				stock.GET("/:sku/movements", stockHandler.ListMovements)
				stock.GET("/:sku/dispatches", stockHandler.ListDispatches)

				warehouseStock := stock.Group("/")
				warehouseStock.Use(middleware.Authorize(models.RoleWarehouse, models.RoleSuperAdmin))
				{
					warehouseStock.POST("/dispatch", stockHandler.Dispatch)
					warehouseStock.POST("/adjust", stockHandler.Adjust)
				}
			}
		}
	}

	return router
}
