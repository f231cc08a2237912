package swagger

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/dulmini1119/tms-sub001/api"
)

// Handler serves the Swagger UI pointed at the document from SpecHandler.
func Handler() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL("/openapi.yml"),
	)
}

func SpecHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	}
}
