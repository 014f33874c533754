package main

import "helpdesk_backend/internal/app"

func main() {
	app.Run()
}
