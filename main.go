/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/gmaffy/biopet-utils/cmd"

func main() {
	cmd.Execute()
}
