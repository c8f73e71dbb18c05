package main

import "github.com/courtside-solutions/ms-go-booking-payments/cmd"

func main() {
	cmd.Execute()
}
