package handler

import (
	"net/http"
	"slotbook/config"
	"slotbook/di"
	"slotbook/shared/logger"
	"sync"
)

var (
	app  *di.App
	once sync.Once
)

// Handler serves the API as a single serverless function. The app is built
// on the first invocation and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		logger.Setup(config.Get())

		app = di.InitializeApp()
	})

	r.RequestURI = r.URL.String()

	app.HTTP.Handler().ServeHTTP(w, r)
}
