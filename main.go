package main

import "github.com/ValentinKolb/jsonq/cmd"

func main() {
	cmd.Execute()
}
