package providers

import (
	"fmt"
	"net/http"
	"safetywatch/internal/structures"
)

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	GetRoutes() []structures.Route
	// Handler serves every registered route, each instrumented under its own
	// pattern. Paths matching no route answer 404 under UnmatchedEndpoint.
	Handler(metrics MetricsProviderInterface, logger Logger) http.Handler
}

type RouterProvider struct {
	routes []structures.Route
	seen   map[string]struct{}
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.add(http.MethodGet, url, handler)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.add(http.MethodPost, url, handler)
}

// add panics on a repeated pattern, as http.ServeMux would when the routes are mounted.
func (rp *RouterProvider) add(method, url string, handler http.Handler) {
	if _, dup := rp.seen[url]; dup {
		panic(fmt.Sprintf("router: %s registered twice", url))
	}
	rp.seen[url] = struct{}{}
	rp.routes = append(rp.routes, structures.Route{
		Method:  method,
		Url:     url,
		Handler: methodHandler(method, handler),
	})
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	return rp.routes
}

func (rp *RouterProvider) Handler(metrics MetricsProviderInterface, logger Logger) http.Handler {
	mux := http.NewServeMux()
	for _, route := range rp.routes {
		mux.Handle(route.Url, MetricsMiddleware(metrics, logger, route.Url, route.Handler))
	}
	if _, ok := rp.seen["/"]; !ok {
		mux.Handle("/", MetricsMiddleware(metrics, logger, UnmatchedEndpoint, http.NotFoundHandler()))
	}
	return mux
}

func NewRouterProvider() RouterProviderInterface {
	return &RouterProvider{seen: make(map[string]struct{})}
}

func methodHandler(method string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
