package main

import (
	"otcsettle/internal/app"

	"github.com/sirupsen/logrus"
)

// @title			OTC Settlement Engine API
// @version		1.0
// @description	Manual job triggers and live quotations of the OTC settlement engine.
// @BasePath		/api/v1
func main() {
	if err := app.Run(); err != nil {
		logrus.WithError(err).Fatal("Application stopped with error")
	}
}
