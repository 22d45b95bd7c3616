package main

import "github.com/deploylint/deploylint/cmd/deploylint"

func main() { deploylint.Execute() }
