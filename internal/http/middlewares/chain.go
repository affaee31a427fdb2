// Package middlewares contiene los decoradores HTTP del hub.
package middlewares

import "net/http"

// Middleware es un decorador de http.Handler
type Middleware func(http.Handler) http.Handler

// Chain aplica middlewares en orden de izquierda a derecha.
// Chain(h, A, B, C) ejecuta: A -> B -> C -> h
// Es decir, A es el primero en interceptar el request y el último en ver la respuesta.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Compose funde varios middlewares en uno solo, con el mismo orden que
// Chain. Útil para compartir una base entre grupos de rutas.
func Compose(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		return Chain(h, mws...)
	}
}
