package graphqlapi

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
)

// Handler serves POSTed GraphQL queries. GET with a query parameter is
// accepted for quick inspection from a browser.
func Handler(schema graphql.Schema) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var query string
		switch r.Method {
		case http.MethodGet:
			query = r.URL.Query().Get("query")
		case http.MethodPost:
			var body struct {
				Query string `json:"query"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "malformed body", http.StatusBadRequest)
				return
			}
			query = body.Query
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if query == "" {
			http.Error(w, "missing query", http.StatusBadRequest)
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:        schema,
			RequestString: query,
			Context:       r.Context(),
		})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})
}
