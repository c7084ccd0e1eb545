package web

import "github.com/skekre98/autorun/core"

type Options struct {
	// Called during Configure to register routes.
	Routes []func(r Router)
	// Optional additional middlewares.
	Middlewares []Handler
	// Modules every request waits for before reaching a handler.
	Await []*core.Class
}

type Option func(*Options)

func WithRoutes(f func(r Router)) Option {
	return func(o *Options) { o.Routes = append(o.Routes, f) }
}

func WithMiddlewares(m ...Handler) Option {
	return func(o *Options) { o.Middlewares = append(o.Middlewares, m...) }
}

// WithAwait gates every route behind the given modules. Use Await on a
// route group to gate only part of the API.
func WithAwait(classes ...*core.Class) Option {
	return func(o *Options) { o.Await = append(o.Await, classes...) }
}
