package main

import "pdfrag/client/pdfrag-cli/cmd"

func main() {
	cmd.Execute()
}
