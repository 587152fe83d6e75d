package utils

import "github.com/gorilla/mux"

// NewRouter constructs the shared mux router with strict-slash handling
// disabled so encoded episode names survive path matching.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.UseEncodedPath()
	return r
}
