package main

import "pdfconvert/internal/cli"

func main() {
	cli.Execute()
}
