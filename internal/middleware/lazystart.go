package middleware

import (
	"net/http"
	"sync"
)

// LazyStart calls start once, on the first request that reaches the
// handler, and never again. The sweep loop is started this way so that a
// server nobody visits does no work.
func LazyStart(start func()) func(http.Handler) http.Handler {
	var once sync.Once
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			once.Do(start)
			next.ServeHTTP(w, r)
		})
	}
}
