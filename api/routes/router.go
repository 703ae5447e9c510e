package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vosmiarka/warehouse-backend/api/controllers"
	"github.com/vosmiarka/warehouse-backend/api/middleware"
	"github.com/vosmiarka/warehouse-backend/internal/catalog"
	"github.com/vosmiarka/warehouse-backend/internal/procurement"
	"github.com/vosmiarka/warehouse-backend/internal/sales"
	"github.com/vosmiarka/warehouse-backend/internal/units"
	"github.com/vosmiarka/warehouse-backend/pkg/config"
	"github.com/vosmiarka/warehouse-backend/pkg/db"
	"github.com/vosmiarka/warehouse-backend/pkg/logger"
	"github.com/vosmiarka/warehouse-backend/pkg/metrics"
	pkgredis "github.com/vosmiarka/warehouse-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       pkgredis.Pinger
	Idempotency pkgredis.IdempotencyStore
	HTTPMetrics *metrics.HTTPMetrics

	Catalog     catalog.Service
	Units       units.Service
	Procurement procurement.Service
	Sales       sales.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, d.DB, d.Redis, logg))
	})

	if d.HTTPMetrics != nil {
		r.Method(http.MethodGet, "/metrics", d.HTTPMetrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(d.Idempotency, cfg.Idempotency.TTL, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(d.Catalog, logg))
			r.Get("/", controllers.ListProducts(d.Catalog, logg))
			r.Get("/{id}", controllers.GetProduct(d.Catalog, logg))
			r.Put("/{id}", controllers.UpdateProduct(d.Catalog, logg))
			r.Delete("/{id}", controllers.DeleteProduct(d.Catalog, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CreateCustomer(d.Catalog, logg))
			r.Get("/", controllers.ListCustomers(d.Catalog, logg))
			r.Get("/{id}", controllers.GetCustomer(d.Catalog, logg))
			r.Put("/{id}", controllers.UpdateCustomer(d.Catalog, logg))
			r.Delete("/{id}", controllers.DeleteCustomer(d.Catalog, logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", controllers.CreateSupplier(d.Catalog, logg))
			r.Get("/", controllers.ListSuppliers(d.Catalog, logg))
			r.Get("/{id}", controllers.GetSupplier(d.Catalog, logg))
			r.Put("/{id}", controllers.UpdateSupplier(d.Catalog, logg))
			r.Delete("/{id}", controllers.DeleteSupplier(d.Catalog, logg))
		})

		r.Route("/units", func(r chi.Router) {
			r.Post("/", controllers.CreateUnit(d.Units, d.Catalog, logg))
			r.Get("/", controllers.ListUnits(d.Units, logg))
			r.Get("/{id}", controllers.GetUnit(d.Units, logg))
			r.Post("/{id}/report", controllers.ReportUnit(d.Units, logg))
			r.Post("/{id}/cancel", controllers.CancelRequestedUnit(d.Units, logg))
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", controllers.PlaceRequest(d.Procurement, logg))
			r.Get("/", controllers.ListRequests(d.Procurement, logg))
			r.Get("/{id}", controllers.GetRequest(d.Procurement, logg))
			r.Post("/{id}/complete", controllers.CompleteRequest(d.Procurement, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Post("/", controllers.ReceiveDelivery(d.Procurement, logg))
			r.Get("/", controllers.ListDeliveries(d.Procurement, logg))
			r.Get("/{id}", controllers.GetDelivery(d.Procurement, logg))
			r.Post("/{id}/items", controllers.AddDeliveryItem(d.Procurement, logg))
			r.Put("/{id}/items/{itemID}", controllers.UpdateDeliveryItem(d.Procurement, logg))
			r.Delete("/{id}/items/{itemID}", controllers.RemoveDeliveryItem(d.Procurement, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Post("/", controllers.RecordSale(d.Sales, logg))
			r.Get("/", controllers.ListSales(d.Sales, logg))
			r.Get("/{id}", controllers.GetSale(d.Sales, logg))
			r.Post("/{id}/cancel", controllers.CancelSale(d.Sales, logg))
			r.Get("/{id}/cancellation", controllers.GetSaleCancellation(d.Sales, logg))
		})
	})

	return r
}
