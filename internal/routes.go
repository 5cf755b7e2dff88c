package internal

import (
	"net/http"
	"safetywatch/internal/controllers"
	"safetywatch/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/categories", http.HandlerFunc(apiController.GetCategories))
	routers.Get("/dates", http.HandlerFunc(apiController.GetDates))
	routers.Get("/series", http.HandlerFunc(apiController.GetSeries))
	routers.Get("/report", http.HandlerFunc(apiController.GetReport))
	routers.Get("/report/export", http.HandlerFunc(apiController.ExportReport))
	routers.Get("/alert", http.HandlerFunc(apiController.GetAlert))
	routers.Post("/alert/dismiss", http.HandlerFunc(apiController.DismissAlert))
	routers.Post("/share", http.HandlerFunc(apiController.Share))
	return routers
}
