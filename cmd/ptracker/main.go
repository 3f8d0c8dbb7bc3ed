package main

import (
	"log"

	"github.com/ptracker-app/ptracker/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalln("application init error:", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		log.Fatalln("application error:", err)
	}
}
