package main

import "locator-healing/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}
